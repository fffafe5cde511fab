package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"assetapi/internal/validation"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("MAX_FILE_SIZE", "1048576")
	t.Setenv("ALLOWED_MIME_TYPES", "image/png, Application/PDF ,")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{"image/png", "application/pdf"}, cfg.Upload.AllowedTypes)
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORAGE_BACKEND", "UPLOAD_DIR", "METADATA_BACKEND", "MAX_FILE_SIZE", "ALLOWED_MIME_TYPES", "DB_AUTO_MIGRATE", "DB_APPLICATION_NAME"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "postgres", cfg.Metadata.Backend)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxFileSize)
	assert.Equal(t, validation.DefaultAllowedTypes, cfg.Upload.AllowedTypes)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "assetapi", cfg.Database.ApplicationName)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvInt64(t *testing.T) {
	key := "TEST_INT64_VAR"

	t.Setenv(key, "20971520")
	assert.Equal(t, int64(20971520), getEnvInt64(key, 1))

	t.Setenv(key, "-5")
	assert.Equal(t, int64(7), getEnvInt64(key, 7))

	t.Setenv(key, "lots")
	assert.Equal(t, int64(7), getEnvInt64(key, 7))
}
