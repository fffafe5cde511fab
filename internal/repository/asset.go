// Package repository contains data access abstractions for asset records.
// Implementations live in subpackages (postgres, memory) and contain no business logic.
package repository

import (
	"context"
	"errors"

	"assetapi/internal/model"
)

var (
	// ErrNotFound is returned when no record matches the id.
	ErrNotFound = errors.New("asset record not found")
	// ErrInvalidID is returned when the id is not valid identifier syntax for the store.
	ErrInvalidID = errors.New("invalid asset id")
	// ErrConstraint is returned when the store rejects a record (check, not-null, unique...).
	ErrConstraint = errors.New("asset record violates store constraints")
)

// AssetRepository defines data access for asset records.
type AssetRepository interface {
	// Insert stores a new record. The store assigns ID and UploadedAt and returns the stored record.
	Insert(ctx context.Context, a *model.Asset) (*model.Asset, error)

	// FindByID returns a record by its ID.
	FindByID(ctx context.Context, id string) (*model.Asset, error)

	// FindFiltered returns every record matching q, newest first.
	// Each call runs a fresh query; results are never cached.
	FindFiltered(ctx context.Context, q model.AssetQuery) ([]model.Asset, error)

	// DeleteByID removes a record. It returns ErrNotFound if no row was removed.
	DeleteByID(ctx context.Context, id string) error
}
