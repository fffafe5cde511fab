package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"assetapi/internal/model"
	"assetapi/internal/repository"
)

const assetColumns = `id, stored_name, original_name, mime_type, size_bytes, storage_path, tags, uploaded_at`

// AssetPostgres is a PostgreSQL implementation of repository.AssetRepository.
// Tags are kept as a JSONB array so records stay document-shaped.
type AssetPostgres struct {
	db *sql.DB
}

// NewAssetPostgres creates a new AssetPostgres repository.
func NewAssetPostgres(db *sql.DB) *AssetPostgres {
	return &AssetPostgres{db: db}
}

var _ repository.AssetRepository = (*AssetPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*model.Asset, error) {
	var (
		a    model.Asset
		tags []byte
	)
	if err := row.Scan(
		&a.ID,
		&a.StoredName,
		&a.OriginalName,
		&a.MimeType,
		&a.SizeBytes,
		&a.StoragePath,
		&tags,
		&a.UploadedAt,
	); err != nil {
		return nil, err
	}
	a.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &a.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &a, nil
}

// Insert stores a new asset row; the database assigns id and uploaded_at.
func (r *AssetPostgres) Insert(ctx context.Context, a *model.Asset) (*model.Asset, error) {
	const q = `
		INSERT INTO assets (stored_name, original_name, mime_type, size_bytes, storage_path, tags)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING ` + assetColumns

	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	row := r.db.QueryRowContext(ctx, q,
		a.StoredName,
		a.OriginalName,
		a.MimeType,
		a.SizeBytes,
		a.StoragePath,
		string(tagsJSON),
	)
	out, err := scanAsset(row)
	if err != nil {
		return nil, classifyWrite(err)
	}
	return out, nil
}

// FindByID fetches a single asset by its ID.
func (r *AssetPostgres) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	const q = `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	a, err := scanAsset(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, classifyLookup(err)
	}
	return a, nil
}

// FindFiltered runs a filtered query ordered newest first.
func (r *AssetPostgres) FindFiltered(ctx context.Context, fq model.AssetQuery) ([]model.Asset, error) {
	where, args := buildWhere(fq)
	q := `SELECT ` + assetColumns + ` FROM assets` + where + ` ORDER BY uploaded_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteByID removes an asset row. It returns repository.ErrNotFound when nothing was deleted.
func (r *AssetPostgres) DeleteByID(ctx context.Context, id string) error {
	const q = `DELETE FROM assets WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return classifyLookup(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// buildWhere compiles a query into a WHERE clause with positional args.
func buildWhere(fq model.AssetQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if fq.MimeType != "" {
		conds = append(conds, "mime_type ILIKE "+next(containsPattern(fq.MimeType)))
	}
	if fq.UploadedFrom != nil {
		conds = append(conds, "uploaded_at >= "+next(*fq.UploadedFrom))
	}
	if fq.UploadedTo != nil {
		conds = append(conds, "uploaded_at < "+next(*fq.UploadedTo))
	}
	if len(fq.Tags) > 0 {
		matches := make([]string, 0, len(fq.Tags))
		for _, tag := range fq.Tags {
			matches = append(matches, "t.tag ILIKE "+next(containsPattern(tag)))
		}
		conds = append(conds, "EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) AS t(tag) WHERE "+
			strings.Join(matches, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s anywhere, literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// classifyLookup maps lookup failures: missing rows and malformed ids get sentinels.
func classifyLookup(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" { // invalid_text_representation
		return fmt.Errorf("%w: %w", repository.ErrInvalidID, err)
	}
	return err
}

// classifyWrite maps integrity (23xxx) and data (22xxx) exceptions to ErrConstraint.
func classifyWrite(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "22")) {
		return fmt.Errorf("%w: %w", repository.ErrConstraint, err)
	}
	return err
}
