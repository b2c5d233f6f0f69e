package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshare/internal/model"
)

func newMock(t *testing.T) (*FilePostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFilePostgres(db), mock
}

func sampleFile() *model.File {
	return &model.File{
		ID:          "11111111-1111-1111-1111-111111111111",
		Name:        "report.pdf",
		FolderPath:  "docs/2024",
		SizeBytes:   1024,
		ContentHash: "abc123",
		MimeType:    "application/pdf",
		StorageKey:  "files/x.pdf",
		UploadedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSave(t *testing.T) {
	repo, mock := newMock(t)
	f := sampleFile()

	mock.ExpectExec("INSERT INTO files").
		WithArgs(f.ID, f.Name, f.FolderPath, f.SizeBytes, f.ContentHash, f.MimeType, f.StorageKey, f.UploadedAt, f.DownloadCount).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Save(context.Background(), f))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveError(t *testing.T) {
	repo, mock := newMock(t)
	f := sampleFile()

	mock.ExpectExec("INSERT INTO files").
		WillReturnError(errors.New("connection refused"))

	assert.Error(t, repo.Save(context.Background(), f))
}

func TestDelete(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("DELETE FROM files").
		WithArgs("some-id").
		WillReturnResult(sqlmock.NewResult(0, 0)) // missing row is not an error

	assert.NoError(t, repo.Delete(context.Background(), "some-id"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAll(t *testing.T) {
	repo, mock := newMock(t)
	f := sampleFile()

	rows := sqlmock.NewRows([]string{
		"id", "name", "folder_path", "size_bytes", "content_hash", "mime_type", "storage_key", "uploaded_at", "download_count",
	}).AddRow(f.ID, f.Name, f.FolderPath, f.SizeBytes, f.ContentHash, f.MimeType, f.StorageKey, f.UploadedAt, int64(3))

	mock.ExpectQuery("SELECT (.+) FROM files").WillReturnRows(rows)

	got, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.ID, got[0].ID)
	assert.Equal(t, "docs/2024", got[0].FolderPath)
	assert.Equal(t, int64(3), got[0].DownloadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAllQueryError(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM files").WillReturnError(errors.New("boom"))

	_, err := repo.LoadAll(context.Background())
	assert.Error(t, err)
}
