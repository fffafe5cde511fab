package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetapi/internal/model"
	"assetapi/internal/repository"
)

func newTestRepo(start time.Time) *AssetRepository {
	r := NewAssetRepository()
	clock := start
	r.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return r
}

func sample(name, mimeType string, tags ...string) *model.Asset {
	return &model.Asset{
		StoredName:   name,
		OriginalName: "orig-" + name,
		MimeType:     mimeType,
		SizeBytes:    42,
		StoragePath:  name,
		Tags:         tags,
	}
}

func TestAssetRepository_InsertAndFind(t *testing.T) {
	repo := newTestRepo(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	in := sample("1-1.pdf", "application/pdf", "invoice", "2024")
	out, err := repo.Insert(ctx, in)
	require.NoError(t, err)

	assert.NotEmpty(t, out.ID)
	assert.False(t, out.UploadedAt.IsZero())
	assert.Empty(t, in.ID, "input must not be mutated")

	got, err := repo.FindByID(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	got.Tags[0] = "changed"
	again, _ := repo.FindByID(ctx, out.ID)
	assert.Equal(t, "invoice", again.Tags[0])
}

func TestAssetRepository_Constraints(t *testing.T) {
	repo := NewAssetRepository()
	ctx := context.Background()

	_, err := repo.Insert(ctx, &model.Asset{})
	assert.ErrorIs(t, err, repository.ErrConstraint)

	bad := sample("1-1.png", "image/png")
	bad.SizeBytes = -1
	_, err = repo.Insert(ctx, bad)
	assert.ErrorIs(t, err, repository.ErrConstraint)

	_, err = repo.Insert(ctx, sample("1-2.png", "image/png"))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, sample("1-2.png", "image/png"))
	assert.ErrorIs(t, err, repository.ErrConstraint)
}

func TestAssetRepository_FindByID_Errors(t *testing.T) {
	repo := NewAssetRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrInvalidID)

	_, err = repo.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAssetRepository_FindFiltered(t *testing.T) {
	day := time.Date(2024, 3, 10, 23, 57, 0, 0, time.UTC)
	repo := newTestRepo(day)
	ctx := context.Background()

	pdf, _ := repo.Insert(ctx, sample("1.pdf", "application/pdf", "Invoice", "2024"))
	png, _ := repo.Insert(ctx, sample("2.png", "image/png", "cat"))
	gif, _ := repo.Insert(ctx, sample("3.gif", "image/gif", "cat", "funny"))
	mp4, _ := repo.Insert(ctx, sample("4.mp4", "video/mp4"))

	ids := func(items []model.Asset) []string {
		out := make([]string, 0, len(items))
		for _, a := range items {
			out = append(out, a.ID)
		}
		return out
	}

	all, err := repo.FindFiltered(ctx, model.AssetQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{mp4.ID, gif.ID, png.ID, pdf.ID}, ids(all))

	images, _ := repo.FindFiltered(ctx, model.AssetQuery{MimeType: "IMAGE"})
	assert.Equal(t, []string{gif.ID, png.ID}, ids(images))

	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	onDay, _ := repo.FindFiltered(ctx, model.AssetQuery{UploadedFrom: &from, UploadedTo: &to})
	assert.Equal(t, []string{png.ID, pdf.ID}, ids(onDay))

	tagged, _ := repo.FindFiltered(ctx, model.AssetQuery{Tags: []string{"invo", "FUN"}})
	assert.Equal(t, []string{gif.ID, pdf.ID}, ids(tagged))

	none, err := repo.FindFiltered(ctx, model.AssetQuery{Tags: []string{"nothing"}})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAssetRepository_DeleteByID(t *testing.T) {
	repo := NewAssetRepository()
	ctx := context.Background()

	a, err := repo.Insert(ctx, sample("1.png", "image/png"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByID(ctx, a.ID))
	assert.ErrorIs(t, repo.DeleteByID(ctx, a.ID), repository.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteByID(ctx, "x"), repository.ErrInvalidID)

	_, err = repo.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
