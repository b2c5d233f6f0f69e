package postgres

import (
	"context"
	"database/sql"

	"fileshare/internal/model"
	"fileshare/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// Save upserts a file record keyed by its ID.
func (r *FilePostgres) Save(ctx context.Context, f *model.File) error {
	const q = `
		INSERT INTO files (id, name, folder_path, size_bytes, content_hash, mime_type, storage_key, uploaded_at, download_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET download_count = EXCLUDED.download_count
	`
	_, err := r.db.ExecContext(ctx, q,
		f.ID,
		f.Name,
		f.FolderPath,
		f.SizeBytes,
		f.ContentHash,
		f.MimeType,
		f.StorageKey,
		f.UploadedAt,
		f.DownloadCount,
	)
	return err
}

// Delete removes a file record by ID. Missing rows are not an error.
func (r *FilePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM files WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// LoadAll returns every stored record, ordered by upload time so the
// in-memory tree rebuild is deterministic.
func (r *FilePostgres) LoadAll(ctx context.Context) ([]model.File, error) {
	const q = `
		SELECT id, name, folder_path, size_bytes, content_hash, mime_type, storage_key, uploaded_at, download_count
		FROM files
		ORDER BY uploaded_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.File, 0)
	for rows.Next() {
		var f model.File
		if err := rows.Scan(
			&f.ID,
			&f.Name,
			&f.FolderPath,
			&f.SizeBytes,
			&f.ContentHash,
			&f.MimeType,
			&f.StorageKey,
			&f.UploadedAt,
			&f.DownloadCount,
		); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
