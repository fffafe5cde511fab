package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct {
	after int
	read  int
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.read >= f.after {
		return 0, errors.New("connection reset")
	}
	n := len(p)
	if n > f.after-f.read {
		n = f.after - f.read
	}
	for i := 0; i < n; i++ {
		p[i] = 'x'
	}
	f.read += n
	return n, nil
}

func TestFilesystem_BasicOps(t *testing.T) {
	store, err := NewFilesystem(t.TempDir(), afero.NewOsFs())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("%PDF-1.7 hello")
	info, err := store.Put(ctx, bytes.NewReader(data), PutObjectOptions{Ext: ".pdf", Size: int64(len(data)), ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, ".pdf", filepath.Ext(info.Name))
	assert.Equal(t, info.Name, info.Key)

	assert.True(t, store.Exists(ctx, info.Key))

	rc, got, err := store.Get(ctx, info.Key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, data, body)
	assert.Equal(t, int64(len(data)), got.Size)
	assert.Equal(t, "application/pdf", got.ContentType)

	require.NoError(t, store.Delete(ctx, info.Key))
	assert.False(t, store.Exists(ctx, info.Key))

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, info.Key))
}

func TestFilesystem_GetMissing(t *testing.T) {
	store, err := NewFilesystem("/data", afero.NewMemMapFs())
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "1700000000000-42.png")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestFilesystem_FailedWriteLeavesNothing(t *testing.T) {
	mem := afero.NewMemMapFs()
	store, err := NewFilesystem("/data", mem)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), &failingReader{after: 1024}, PutObjectOptions{Ext: ".mp4", Size: -1})
	require.Error(t, err)

	entries, err := afero.ReadDir(mem, "/data")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFilesystem_CancelledContext(t *testing.T) {
	mem := afero.NewMemMapFs()
	store, err := NewFilesystem("/data", mem)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, bytes.NewReader([]byte("x")), PutObjectOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilesystem_DeletePermissionError(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/data", 0o755))
	require.NoError(t, afero.WriteFile(base, "/data/1-1.png", []byte("png"), 0o644))

	store, err := NewFilesystem("/data", afero.NewReadOnlyFs(base))
	require.NoError(t, err)

	err = store.Delete(context.Background(), "1-1.png")
	assert.Error(t, err)
	assert.True(t, store.Exists(context.Background(), "1-1.png"))
}

func TestFilesystem_RejectsEscapingKeys(t *testing.T) {
	store, err := NewFilesystem("/data", afero.NewMemMapFs())
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, store.Exists(ctx, "../etc/passwd"))
	assert.Error(t, store.Delete(ctx, "../etc/passwd"))
	_, _, err = store.Get(ctx, "/etc/passwd")
	assert.Error(t, err)
}

func TestNewFilesystem_RootIsFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/data", []byte("x"), 0o644))

	_, err := NewFilesystem("/data", mem)
	assert.Error(t, err)

	_, err = NewFilesystem("", mem)
	assert.Error(t, err)
}
