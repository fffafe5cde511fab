package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"assetapi/internal/model"
	"assetapi/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assetRowColumns = []string{"id", "stored_name", "original_name", "mime_type", "size_bytes", "storage_path", "tags", "uploaded_at"}

func TestAssetPostgres_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAssetPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	in := &model.Asset{
		StoredName:   "1700000000000-1.pdf",
		OriginalName: "invoice.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    2097152,
		StoragePath:  "1700000000000-1.pdf",
		Tags:         []string{"invoice", "2024"},
	}

	t.Run("success", func(t *testing.T) {
		rows := sqlmock.NewRows(assetRowColumns).
			AddRow("5f0c7a52-3f57-4c7e-9d5b-0e9f3c2b1a10", in.StoredName, in.OriginalName, in.MimeType, in.SizeBytes, in.StoragePath, []byte(`["invoice","2024"]`), now)

		mock.ExpectQuery("INSERT INTO assets").
			WithArgs(in.StoredName, in.OriginalName, in.MimeType, in.SizeBytes, in.StoragePath, `["invoice","2024"]`).
			WillReturnRows(rows)

		out, err := repo.Insert(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, "5f0c7a52-3f57-4c7e-9d5b-0e9f3c2b1a10", out.ID)
		assert.Equal(t, []string{"invoice", "2024"}, out.Tags)
		assert.Equal(t, now, out.UploadedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil tags stored as empty array", func(t *testing.T) {
		noTags := *in
		noTags.Tags = nil
		rows := sqlmock.NewRows(assetRowColumns).
			AddRow("5f0c7a52-3f57-4c7e-9d5b-0e9f3c2b1a11", in.StoredName, in.OriginalName, in.MimeType, in.SizeBytes, in.StoragePath, []byte(`[]`), now)

		mock.ExpectQuery("INSERT INTO assets").
			WithArgs(in.StoredName, in.OriginalName, in.MimeType, in.SizeBytes, in.StoragePath, `[]`).
			WillReturnRows(rows)

		out, err := repo.Insert(ctx, &noTags)

		require.NoError(t, err)
		assert.Equal(t, []string{}, out.Tags)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("constraint violation", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO assets").
			WillReturnError(&pgconn.PgError{Code: "23514", Message: "violates check constraint"})

		out, err := repo.Insert(ctx, in)

		assert.Nil(t, out)
		assert.ErrorIs(t, err, repository.ErrConstraint)
		var pgErr *pgconn.PgError
		assert.True(t, errors.As(err, &pgErr))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure is not a constraint", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO assets").WillReturnError(errors.New("conn reset"))

		_, err := repo.Insert(ctx, in)

		assert.Error(t, err)
		assert.False(t, errors.Is(err, repository.ErrConstraint))
	})
}

func TestAssetPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAssetPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(assetRowColumns).
			AddRow("test-id", "1-1.png", "cat.png", "image/png", 100, "1-1.png", []byte(`["cat"]`), time.Now())

		mock.ExpectQuery("SELECT (.+) FROM assets WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(rows)

		a, err := repo.FindByID(ctx, "test-id")

		assert.NoError(t, err)
		assert.Equal(t, "test-id", a.ID)
		assert.Equal(t, []string{"cat"}, a.Tags)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		a, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, a)
	})

	t.Run("malformed id", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets WHERE id = ?").
			WithArgs("nope").
			WillReturnError(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})

		_, err := repo.FindByID(ctx, "nope")

		assert.ErrorIs(t, err, repository.ErrInvalidID)
		assert.False(t, errors.Is(err, repository.ErrNotFound))
	})
}

func TestAssetPostgres_FindFiltered(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAssetPostgres(db)
	ctx := context.Background()

	t.Run("no filters", func(t *testing.T) {
		rows := sqlmock.NewRows(assetRowColumns).
			AddRow("b", "2-2.gif", "b.gif", "image/gif", 10, "2-2.gif", []byte(`[]`), time.Now()).
			AddRow("a", "1-1.gif", "a.gif", "image/gif", 10, "1-1.gif", []byte(`["x","x"]`), time.Now().Add(-time.Hour))

		mock.ExpectQuery(regexp.QuoteMeta("FROM assets ORDER BY uploaded_at DESC, id DESC")).
			WithArgs().
			WillReturnRows(rows)

		items, err := repo.FindFiltered(ctx, model.AssetQuery{})

		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Equal(t, []string{"x", "x"}, items[1].Tags)
	})

	t.Run("all filters", func(t *testing.T) {
		from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, 1)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE mime_type ILIKE $1 AND uploaded_at >= $2 AND uploaded_at < $3 AND " +
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) AS t(tag) WHERE t.tag ILIKE $4 OR t.tag ILIKE $5) " +
			"ORDER BY uploaded_at DESC")).
			WithArgs("%image%", from, to, "%inv%", `%50\%%`).
			WillReturnRows(sqlmock.NewRows(assetRowColumns))

		items, err := repo.FindFiltered(ctx, model.AssetQuery{
			MimeType:     "image",
			UploadedFrom: &from,
			UploadedTo:   &to,
			Tags:         []string{"inv", "50%"},
		})

		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets").WillReturnError(errors.New("db fail"))

		_, err := repo.FindFiltered(ctx, model.AssetQuery{})

		assert.Error(t, err)
	})
}

func TestAssetPostgres_DeleteByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAssetPostgres(db)
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM assets WHERE id = ?").
			WithArgs("test-id").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.DeleteByID(ctx, "test-id"))
	})

	t.Run("already gone", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM assets WHERE id = ?").
			WithArgs("test-id").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.DeleteByID(ctx, "test-id"), repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%pdf%", containsPattern("pdf"))
	assert.Equal(t, `%a\_b\\c\%%`, containsPattern(`a_b\c%`))
}
