package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable marks an already migrated schema.
const sentinelTable = "public.assets"

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_assets",
		SQL: `CREATE TABLE IF NOT EXISTS assets (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  stored_name   TEXT        NOT NULL UNIQUE CHECK (stored_name <> ''),
  original_name TEXT        NOT NULL CHECK (original_name <> ''),
  mime_type     TEXT        NOT NULL CHECK (mime_type <> ''),
  size_bytes    BIGINT      NOT NULL CHECK (size_bytes >= 0),
  storage_path  TEXT        NOT NULL UNIQUE CHECK (storage_path <> ''),
  tags          JSONB       NOT NULL DEFAULT '[]'::jsonb CHECK (jsonb_typeof(tags) = 'array'),
  uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_assets_mime_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_assets_mime_type ON assets (mime_type);`,
	},
	{
		Name: "create_index_assets_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_assets_uploaded_at ON assets (uploaded_at DESC, id DESC);`,
	},
	{
		Name: "create_index_assets_tags",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_assets_tags ON assets USING GIN (tags);`,
	},
}

// EnsureMigrated checks if the 'assets' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))
	start := time.Now()

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists)
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("reason", "schema already exists"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"), zap.Int("steps", len(steps)))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
