package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"assetapi/internal/model"
	"assetapi/internal/repository"
)

// AssetRepository is an in-memory implementation of repository.AssetRepository.
// It enforces the same constraints as the SQL schema so the service sees the same failures.
type AssetRepository struct {
	mu     sync.RWMutex
	assets map[uuid.UUID]model.Asset
	now    func() time.Time
}

// NewAssetRepository creates a new in-memory asset repository.
func NewAssetRepository() *AssetRepository {
	return &AssetRepository{
		assets: make(map[uuid.UUID]model.Asset),
		now:    time.Now,
	}
}

var _ repository.AssetRepository = (*AssetRepository)(nil)

// Insert adds a record, assigning ID and UploadedAt.
func (r *AssetRepository) Insert(ctx context.Context, a *model.Asset) (*model.Asset, error) {
	if err := checkConstraints(a); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.assets {
		if existing.StoredName == a.StoredName || existing.StoragePath == a.StoragePath {
			return nil, fmt.Errorf("%w: duplicate stored name %q", repository.ErrConstraint, a.StoredName)
		}
	}

	stored := clone(*a)
	id := uuid.New()
	stored.ID = id.String()
	stored.UploadedAt = r.now()
	r.assets[id] = stored

	out := clone(stored)
	return &out, nil
}

// FindByID retrieves a record by ID.
func (r *AssetRepository) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrInvalidID, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

// FindFiltered returns copies of matching records, newest first.
func (r *AssetRepository) FindFiltered(ctx context.Context, q model.AssetQuery) ([]model.Asset, error) {
	r.mu.RLock()
	items := make([]model.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		if matches(a, q) {
			items = append(items, clone(a))
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].UploadedAt.Equal(items[j].UploadedAt) {
			return items[i].UploadedAt.After(items[j].UploadedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

// DeleteByID removes a record by ID.
func (r *AssetRepository) DeleteByID(ctx context.Context, id string) error {
	key, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInvalidID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.assets[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.assets, key)
	return nil
}

func checkConstraints(a *model.Asset) error {
	switch {
	case a == nil:
		return fmt.Errorf("%w: nil record", repository.ErrConstraint)
	case a.StoredName == "", a.StoragePath == "":
		return fmt.Errorf("%w: stored name and storage path are required", repository.ErrConstraint)
	case a.OriginalName == "", a.MimeType == "":
		return fmt.Errorf("%w: original name and mime type are required", repository.ErrConstraint)
	case a.SizeBytes < 0:
		return fmt.Errorf("%w: size must not be negative", repository.ErrConstraint)
	}
	return nil
}

func matches(a model.Asset, q model.AssetQuery) bool {
	if q.MimeType != "" && !containsFold(a.MimeType, q.MimeType) {
		return false
	}
	if q.UploadedFrom != nil && a.UploadedAt.Before(*q.UploadedFrom) {
		return false
	}
	if q.UploadedTo != nil && !a.UploadedAt.Before(*q.UploadedTo) {
		return false
	}
	if len(q.Tags) > 0 {
		for _, want := range q.Tags {
			for _, tag := range a.Tags {
				if containsFold(tag, want) {
					return true
				}
			}
		}
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func clone(a model.Asset) model.Asset {
	a.Tags = append(make([]string, 0, len(a.Tags)), a.Tags...)
	return a
}
