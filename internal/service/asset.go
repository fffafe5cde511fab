package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"assetapi/internal/apperr"
	"assetapi/internal/model"
	"assetapi/internal/repository"
	"assetapi/internal/storage"
	"assetapi/internal/validation"
)

// FileUpload is an uploaded file as handed over by a transport.
type FileUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// IngestInput holds everything Ingest needs. A nil File means no file was sent.
// RawTags holds every submitted tags value.
type IngestInput struct {
	File    *FileUpload
	RawTags []string
}

// AssetView is the client-facing projection of an asset.
type AssetView struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       string    `json:"size"`
	Type       string    `json:"type"`
	Tags       []string  `json:"tags"`
	UploadDate time.Time `json:"uploadDate"`
}

// AssetListResult is the service-level DTO for filtered listings.
type AssetListResult struct {
	Count  int         `json:"count"`
	Assets []AssetView `json:"assets"`
}

// Download is an open blob plus what a transport needs to serve it.
// The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// Deleted confirms a removal.
type Deleted struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// AssetService defines the use cases for handling assets.
type AssetService interface {
	// Ingest stores the blob, then its record. If the record cannot be saved the blob is removed again.
	Ingest(ctx context.Context, in IngestInput) (*AssetView, error)

	// List returns every asset matching the filter, newest first.
	List(ctx context.Context, f validation.Filter) (*AssetListResult, error)

	// Retrieve opens the blob of an asset for download.
	Retrieve(ctx context.Context, id string) (*Download, error)

	// Remove deletes the blob, then the record.
	Remove(ctx context.Context, id string) (*Deleted, error)
}

// Option configures the asset service.
type Option func(*assetService)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *assetService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics enables service metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *assetService) { s.metrics = m }
}

// assetService is a concrete implementation of AssetService.
type assetService struct {
	store   storage.Storage
	repo    repository.AssetRepository
	policy  validation.Policy
	log     *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewAssetService constructs a new AssetService.
func NewAssetService(store storage.Storage, repo repository.AssetRepository, policy validation.Policy, opts ...Option) AssetService {
	s := &assetService{
		store:  store,
		repo:   repo,
		policy: policy,
		log:    zap.NewNop(),
		tracer: otel.Tracer("assetapi/internal/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *assetService) Ingest(ctx context.Context, in IngestInput) (_ *AssetView, err error) {
	ctx, span := s.tracer.Start(ctx, "AssetService.Ingest")
	defer func() { s.finish(span, "ingest", err) }()

	var meta *validation.FileMeta
	if in.File != nil && in.File.Reader != nil {
		meta = &validation.FileMeta{Filename: in.File.Filename, MimeType: in.File.ContentType, Size: in.File.Size}
	}
	upload, err := s.policy.ValidateUpload(meta, in.RawTags)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("asset.mime_type", upload.MimeType), attribute.Int64("asset.declared_size", upload.SizeBytes))

	// One byte past the limit is enough to detect a body larger than declared.
	body := io.LimitReader(in.File.Reader, s.policy.MaxFileSize+1)
	info, err := s.store.Put(ctx, body, storage.PutObjectOptions{
		Ext:         storage.ExtOf(in.File.Filename),
		Size:        upload.SizeBytes,
		ContentType: upload.MimeType,
		Metadata: map[string]string{
			"original-filename": in.File.Filename,
		},
	})
	if err != nil {
		return nil, &apperr.StorageError{Op: "put", Key: in.File.Filename, Err: err}
	}

	if err := s.policy.CheckSize(info.Size); err != nil {
		s.discard(ctx, info.Key, "oversize_body")
		return nil, err
	}

	rec := &model.Asset{
		StoredName:   info.Name,
		OriginalName: in.File.Filename,
		MimeType:     upload.MimeType,
		SizeBytes:    info.Size,
		StoragePath:  info.Key,
		Tags:         upload.Tags,
	}
	stored, err := s.repo.Insert(ctx, rec)
	if err != nil {
		s.discard(ctx, info.Key, "metadata_insert_failed")
		if errors.Is(err, repository.ErrConstraint) {
			return nil, &apperr.UpstreamStoreError{Op: "insert", Err: err}
		}
		return nil, fmt.Errorf("save asset metadata: %w", err)
	}

	s.metrics.ingested(stored.SizeBytes)
	s.log.Info("asset_ingested",
		zap.String("asset_id", stored.ID),
		zap.String("stored_name", stored.StoredName),
		zap.String("mime_type", stored.MimeType),
		zap.Int64("size_bytes", stored.SizeBytes),
	)

	view := project(*stored)
	return &view, nil
}

// List returns projections of matching assets.
func (s *assetService) List(ctx context.Context, f validation.Filter) (_ *AssetListResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AssetService.List")
	defer func() { s.finish(span, "list", err) }()

	q, err := s.policy.ValidateFilterQuery(f)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.FindFiltered(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	views := make([]AssetView, 0, len(items))
	for _, a := range items {
		views = append(views, project(a))
	}
	span.SetAttributes(attribute.Int("asset.count", len(views)))
	return &AssetListResult{Count: len(views), Assets: views}, nil
}

// Retrieve opens the blob behind an asset record.
func (s *assetService) Retrieve(ctx context.Context, id string) (_ *Download, err error) {
	ctx, span := s.tracer.Start(ctx, "AssetService.Retrieve", trace.WithAttributes(attribute.String("asset.id", id)))
	defer func() { s.finish(span, "retrieve", err) }()

	a, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.store.Exists(ctx, a.StoragePath) {
		return nil, &apperr.NotFoundError{Subject: apperr.SubjectBlob, ID: a.ID}
	}
	body, info, err := s.store.Get(ctx, a.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, &apperr.NotFoundError{Subject: apperr.SubjectBlob, ID: a.ID}
		}
		return nil, &apperr.StorageError{Op: "get", Key: a.StoragePath, Err: err}
	}

	return &Download{
		Body:        body,
		Filename:    a.OriginalName,
		ContentType: a.MimeType,
		Size:        info.Size,
	}, nil
}

// Remove deletes the blob first; the record goes only once the blob is gone.
func (s *assetService) Remove(ctx context.Context, id string) (_ *Deleted, err error) {
	ctx, span := s.tracer.Start(ctx, "AssetService.Remove", trace.WithAttributes(attribute.String("asset.id", id)))
	defer func() { s.finish(span, "remove", err) }()

	a, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, a.StoragePath); err != nil {
		return nil, &apperr.StorageError{Op: "delete", Key: a.StoragePath, Err: err}
	}

	if err := s.repo.DeleteByID(ctx, a.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &apperr.NotFoundError{Subject: apperr.SubjectRecord, ID: a.ID}
		}
		return nil, fmt.Errorf("delete asset metadata: %w", err)
	}

	s.log.Info("asset_deleted", zap.String("asset_id", a.ID), zap.String("storage_path", a.StoragePath))
	return &Deleted{ID: a.ID, Filename: a.OriginalName}, nil
}

// findRecord validates id syntax and loads the record.
func (s *assetService) findRecord(ctx context.Context, id string) (*model.Asset, error) {
	if !validation.ValidateAssetID(id) {
		return nil, invalidID()
	}
	a, err := s.repo.FindByID(ctx, id)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, &apperr.NotFoundError{Subject: apperr.SubjectRecord, ID: id}
	case errors.Is(err, repository.ErrInvalidID):
		return nil, invalidID()
	default:
		return nil, fmt.Errorf("find asset: %w", err)
	}
}

// discard removes a blob that must not outlive a failed ingest.
// Failure leaks a file, never a record, so it is logged rather than returned.
func (s *assetService) discard(ctx context.Context, key, reason string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.metrics.orphaned()
		s.log.Warn("orphan_blob_cleanup_failed",
			zap.String("storage_path", key),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("orphan_blob_removed", zap.String("storage_path", key), zap.String("reason", reason))
}

func (s *assetService) finish(span trace.Span, op string, err error) {
	kind := apperr.KindOf(err)
	switch {
	case err == nil:
		s.metrics.observe(op, "ok")
	default:
		s.metrics.observe(op, kind.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
	}
	span.End()
}

func invalidID() error {
	return apperr.NewValidation(apperr.CodeInvalidID, "Invalid asset ID",
		map[string]any{"details": "The provided asset ID format is invalid"})
}

func project(a model.Asset) AssetView {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return AssetView{
		ID:         a.ID,
		Filename:   a.OriginalName,
		Size:       humanize.IBytes(uint64(a.SizeBytes)),
		Type:       a.MimeType,
		Tags:       tags,
		UploadDate: a.UploadedAt,
	}
}
