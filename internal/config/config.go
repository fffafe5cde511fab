package config

import (
	"os"
	"strconv"
	"strings"

	"assetapi/internal/validation"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	// ApplicationName is reported to the server and shows up in pg_stat_activity.
	ApplicationName   string
	ConnectTimeoutSec int
	// AutoMigrate creates the schema on serve when it is missing.
	AutoMigrate bool
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects where blobs live.
type StorageConfig struct {
	// Backend is "fs" (default) or "minio".
	Backend string
	// UploadDir is the filesystem root for the fs backend.
	UploadDir string
}

// MetadataConfig selects where asset records live.
type MetadataConfig struct {
	// Backend is "postgres" (default) or "memory".
	Backend string
}

// UploadConfig is the upload policy. It is read once at startup.
type UploadConfig struct {
	MaxFileSize  int64
	AllowedTypes []string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Timezone string
	LogLevel string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Storage  StorageConfig
	Metadata MetadataConfig
	Upload   UploadConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "Local"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "assetapi"),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
			AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Storage: StorageConfig{
			Backend:   strings.ToLower(getEnv("STORAGE_BACKEND", "fs")),
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		},
		Metadata: MetadataConfig{
			Backend: strings.ToLower(getEnv("METADATA_BACKEND", "postgres")),
		},
		Upload: UploadConfig{
			MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", validation.DefaultMaxFileSize),
			AllowedTypes: getEnvList("ALLOWED_MIME_TYPES", validation.DefaultAllowedTypes),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvInt64 ignores non-positive values so a typo cannot disable the size limit.
func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil && i > 0 {
			return i
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, strings.ToLower(item))
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
