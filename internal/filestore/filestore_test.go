package filestore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshare/internal/eventbus"
	"fileshare/internal/model"
	"fileshare/internal/pathutil"
)

func newTestStore() (*Store, *eventbus.Bus) {
	bus := eventbus.New()
	return New(bus, nil), bus
}

func TestCreateFolderIdempotent(t *testing.T) {
	s, _ := newTestStore()

	require.NoError(t, s.CreateFolder("docs/2024"))
	require.NoError(t, s.CreateFolder("docs/2024"))

	folders, files, err := s.ListChildren("docs")
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "2024", folders[0].Name)
	assert.Empty(t, files)
}

func TestCreateFolderRejectsFileOccupiedPath(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.PutFile(ctx, "docs", "report.pdf", []byte("x"), "application/pdf", "k1")
	require.NoError(t, err)

	err = s.CreateFolder("docs/report.pdf")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateFolderInvalidPath(t *testing.T) {
	s, _ := newTestStore()
	assert.ErrorIs(t, s.CreateFolder("../escape"), pathutil.ErrInvalidPath)
	assert.NoError(t, s.CreateFolder("")) // root always exists
}

func TestPutFileAutoCreatesAncestors(t *testing.T) {
	s, bus := newTestStore()
	ctx := context.Background()
	sub := bus.Subscribe()

	rec, err := s.PutFile(ctx, "docs/2024", "report.pdf", []byte("hello"), "application/pdf", "k1")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "docs/2024", rec.FolderPath)
	assert.Equal(t, int64(5), rec.SizeBytes)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", rec.ContentHash)

	folders, files, err := s.ListChildren("docs")
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "2024", folders[0].Name)
	assert.Empty(t, files)

	folders, files, err = s.ListChildren("docs/2024")
	require.NoError(t, err)
	assert.Empty(t, folders)
	require.Len(t, files, 1)
	assert.Equal(t, "report.pdf", files[0].Name)

	e := <-sub.C
	assert.Equal(t, eventbus.FileUploaded, e.Kind)
	assert.Equal(t, rec.ID, e.Payload.(model.File).ID)
}

func TestPutFileIdenticalContentPreservesIdentity(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	first, err := s.PutFile(ctx, "", "a.txt", []byte("same"), "text/plain", "k1")
	require.NoError(t, err)

	second, err := s.PutFile(ctx, "", "a.txt", []byte("same"), "text/plain", "k2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	// The original blob stays authoritative; the caller's new one is an orphan.
	assert.Equal(t, "k1", second.StorageKey)

	st := s.Totals()
	assert.Equal(t, 1, st.FileCount)
}

func TestPutFileNameConflictOnDifferentContent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.PutFile(ctx, "docs", "a.txt", []byte("one"), "text/plain", "k1")
	require.NoError(t, err)

	_, err = s.PutFile(ctx, "docs", "a.txt", []byte("two"), "text/plain", "k2")
	assert.ErrorIs(t, err, ErrNameConflict)
}

func TestPutFileRejectsBadNames(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	for _, name := range []string{"", "a/b.txt", `a\b.txt`, ".."} {
		_, err := s.PutFile(ctx, "", name, []byte("x"), "text/plain", "k")
		assert.ErrorIs(t, err, pathutil.ErrInvalidPath, "name %q", name)
	}
}

func TestConcurrentPutSameSlot(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Same slot, differing content: exactly one create wins, the
			// rest must observe a conflict. No duplicate records.
			_, errs[i] = s.PutFile(ctx, "docs", "clash.bin", []byte{byte(i)}, "application/octet-stream", "k")
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNameConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflict)
	assert.Equal(t, 1, s.Totals().FileCount)
}

func TestGetFileAndResolvePath(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	rec, err := s.PutFile(ctx, "docs", "a.txt", []byte("x"), "text/plain", "k")
	require.NoError(t, err)

	got, err := s.GetFile(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	byPath, err := s.ResolvePath("docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byPath.ID)

	_, err = s.GetFile("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ResolvePath("docs/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListChildrenMissingFolder(t *testing.T) {
	s, _ := newTestStore()

	_, _, err := s.ListChildren("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	// Root always exists even when empty.
	folders, files, err := s.ListChildren("")
	require.NoError(t, err)
	assert.Empty(t, folders)
	assert.Empty(t, files)
}

type recordingRevoker struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingRevoker) RevokeAllFor(fileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, fileID)
}

func TestDeleteFileRevokesBeforePublishing(t *testing.T) {
	s, bus := newTestStore()
	ctx := context.Background()
	rev := &recordingRevoker{}
	s.SetRevoker(rev)

	rec, err := s.PutFile(ctx, "", "a.txt", []byte("x"), "text/plain", "k")
	require.NoError(t, err)

	sub := bus.Subscribe()
	removed, err := s.DeleteFile(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "k", removed.StorageKey)

	// Revocation happened, and the event carries the removed record.
	assert.Equal(t, []string{rec.ID}, rev.ids)
	e := <-sub.C
	assert.Equal(t, eventbus.FileDeleted, e.Kind)
	assert.Equal(t, rec.ID, e.Payload.(model.File).ID)

	_, err = s.GetFile(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DeleteFile(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentRecordDownload(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	rec, err := s.PutFile(ctx, "", "a.txt", []byte("x"), "text/plain", "k")
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordDownload(ctx, rec.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetFile(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.DownloadCount)
	assert.Equal(t, int64(n), s.Totals().TotalDownloads)
}

func TestTotals(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.PutFile(ctx, "", "a.txt", []byte("aa"), "text/plain", "k1")
	require.NoError(t, err)
	rec, err := s.PutFile(ctx, "docs", "b.txt", []byte("bbbb"), "text/plain", "k2")
	require.NoError(t, err)
	_, err = s.RecordDownload(ctx, rec.ID)
	require.NoError(t, err)

	st := s.Totals()
	assert.Equal(t, 2, st.FileCount)
	assert.Equal(t, int64(6), st.TotalSizeBytes)
	assert.Equal(t, int64(1), st.TotalDownloads)
}
