package migration

import (
	"context"
	"database/sql"
	"fmt"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_files",
		SQL: `CREATE TABLE IF NOT EXISTS files (
  id             UUID        PRIMARY KEY,
  name           TEXT        NOT NULL,
  folder_path    TEXT        NOT NULL DEFAULT '',
  size_bytes     BIGINT      NOT NULL CHECK (size_bytes >= 0),
  content_hash   TEXT        NOT NULL,
  mime_type      TEXT        NOT NULL,
  storage_key    TEXT        NOT NULL UNIQUE,
  uploaded_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  download_count BIGINT      NOT NULL DEFAULT 0,
  UNIQUE (folder_path, name)
);`,
	},
	{
		Name: "create_index_files_folder_path",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_files_folder_path ON files (folder_path);`,
	},
	{
		Name: "create_index_files_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_files_uploaded_at ON files (uploaded_at);`,
	},
}

// EnsureMigrated checks whether the files table exists and runs the
// migration steps if it does not.
func EnsureMigrated(ctx context.Context, db *sql.DB) error {
	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.files') IS NOT NULL").Scan(&exists); err != nil {
		return fmt.Errorf("check files table: %w", err)
	}
	if exists {
		return nil
	}
	for _, step := range steps {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", step.Name, err)
		}
	}
	return nil
}
