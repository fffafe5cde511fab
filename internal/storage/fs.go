package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// filesystemStorage implements Storage on a directory tree.
// Blobs are written to a hidden part file, synced, then renamed into place,
// so a failed write never leaves a partial blob under its final name.
type filesystemStorage struct {
	fs   afero.Fs
	root string
}

// NewFilesystem creates a filesystem-backed Storage rooted at root.
// The root directory is created if missing. Pass afero.NewOsFs() in production.
func NewFilesystem(root string, fsys afero.Fs) (Storage, error) {
	if root == "" {
		return nil, errors.New("upload directory is required")
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	if info, err := fsys.Stat(root); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("upload directory %s is not a directory", root)
		}
	} else if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return &filesystemStorage{fs: fsys, root: root}, nil
}

func (s *filesystemStorage) path(key string) (string, error) {
	if key == "" || !filepath.IsLocal(key) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

// Put streams r to disk under a generated name.
func (s *filesystemStorage) Put(ctx context.Context, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	name := GenerateName(opt.Ext)
	final := filepath.Join(s.root, name)
	part := filepath.Join(s.root, "."+name+".part")

	f, err := s.fs.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create blob: %w", err)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(part)
		return ObjectInfo{}, fmt.Errorf("write blob: %w", err)
	}

	if err := s.fs.Rename(part, final); err != nil {
		_ = s.fs.Remove(part)
		return ObjectInfo{}, fmt.Errorf("commit blob: %w", err)
	}

	return ObjectInfo{
		Name:         name,
		Key:          name,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens a blob for reading.
func (s *filesystemStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", key, ErrNotExist)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return f, ObjectInfo{
		Name:         filepath.Base(key),
		Key:          key,
		Size:         st.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(key)),
		LastModified: st.ModTime(),
	}, nil
}

// Exists reports whether key names a regular file.
func (s *filesystemStorage) Exists(ctx context.Context, key string) bool {
	p, err := s.path(key)
	if err != nil {
		return false
	}
	info, err := s.fs.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes a blob; a missing blob is not an error.
func (s *filesystemStorage) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
