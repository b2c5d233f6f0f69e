package repository

import (
	"context"

	"fileshare/internal/model"
)

// FileRepository persists file metadata using SQL queries only.
// No business logic here, strictly persistence operations. The file store
// owns the authoritative in-memory state; the repository is a write-through
// backing loaded once at boot.
type FileRepository interface {
	// Save inserts or updates a file record keyed by its ID.
	Save(ctx context.Context, f *model.File) error

	// Delete removes a file record by ID. It returns nil if the row was
	// deleted or did not exist.
	Delete(ctx context.Context, id string) error

	// LoadAll returns every stored file record, used to rebuild the
	// in-memory tree at startup.
	LoadAll(ctx context.Context) ([]model.File, error)
}
