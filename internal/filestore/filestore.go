// Package filestore owns the folder/file tree: create, list, delete, resolve
// metadata. All mutations are serialized under one lock and published to the
// event bus after they commit.
package filestore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileshare/internal/eventbus"
	"fileshare/internal/model"
	"fileshare/internal/pathutil"
	"fileshare/internal/repository"
)

var (
	ErrNotFound      = errors.New("file not found")
	ErrAlreadyExists = errors.New("path already exists")
	ErrNameConflict  = errors.New("name conflict")
)

// Revoker invalidates all share tokens bound to a file. Implemented by the
// share link registry; invoked on delete before the FileDeleted event is
// published, so no subscriber can race ahead of token revocation.
type Revoker interface {
	RevokeAllFor(fileID string)
}

// Store is the authoritative owner of the folder tree and file records.
// A single RWMutex guards all state; contention is low and the operations
// are short, so coarse locking keeps the invariants easy to verify.
type Store struct {
	mu      sync.RWMutex
	folders map[string]struct{}     // normalized folder paths, root "" excluded
	files   map[string]*model.File  // by file ID
	slots   map[string]string       // full path -> file ID
	bus     *eventbus.Bus
	repo    repository.FileRepository // optional write-through backing, may be nil
	revoker Revoker
}

// New constructs an empty Store publishing to bus. repo may be nil for
// memory-only operation (tests, ephemeral deployments).
func New(bus *eventbus.Bus, repo repository.FileRepository) *Store {
	return &Store{
		folders: make(map[string]struct{}),
		files:   make(map[string]*model.File),
		slots:   make(map[string]string),
		bus:     bus,
		repo:    repo,
	}
}

// SetRevoker wires the share token registry in after construction; the
// registry itself needs the store to check file existence on issue.
func (s *Store) SetRevoker(r Revoker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoker = r
}

// Load rebuilds the in-memory tree from the repository. Call once at boot,
// before the store is shared.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	recs, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load file records: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range recs {
		rec := recs[i]
		s.files[rec.ID] = &rec
		s.slots[rec.FullPath()] = rec.ID
		s.ensureFoldersLocked(rec.FolderPath)
	}
	return nil
}

// CreateFolder creates the folder and any missing ancestors. Idempotent for
// folders; fails with ErrAlreadyExists only if a file occupies that exact path.
func (s *Store) CreateFolder(path string) error {
	norm, err := pathutil.Normalize(path)
	if err != nil {
		return err
	}
	if norm == "" {
		return nil // root always exists
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.slots[norm]; taken {
		return fmt.Errorf("%w: file at %q", ErrAlreadyExists, norm)
	}
	s.ensureFoldersLocked(norm)
	return nil
}

// ensureFoldersLocked adds folder and all its ancestors to the tree.
func (s *Store) ensureFoldersLocked(folder string) {
	if folder == "" {
		return
	}
	for _, a := range pathutil.Ancestors(folder) {
		s.folders[a] = struct{}{}
	}
	s.folders[folder] = struct{}{}
}

// PutFile ingests a fully-received file under (folderPath, name), creating
// missing ancestor folders. The content hash is computed synchronously. On a
// name collision within the folder the existing identity is preserved when
// the content hash is identical; otherwise the call fails with
// ErrNameConflict. storageKey is where the caller placed the blob; when the
// returned record's StorageKey differs from it, the caller's blob is an
// orphan it should clean up.
func (s *Store) PutFile(ctx context.Context, folderPath, name string, content []byte, mimeType, storageKey string) (*model.File, error) {
	folder, err := pathutil.Normalize(folderPath)
	if err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: file name %q", pathutil.ErrInvalidPath, name)
	}
	if _, err := pathutil.Normalize(name); err != nil {
		return nil, err
	}

	sum := md5.Sum(content)
	hash := hex.EncodeToString(sum[:])
	full := name
	if folder != "" {
		full = folder + "/" + name
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, isFolder := s.folders[full]; isFolder {
		return nil, fmt.Errorf("%w: folder at %q", ErrAlreadyExists, full)
	}

	if id, taken := s.slots[full]; taken {
		existing := s.files[id]
		if existing.ContentHash != hash {
			return nil, fmt.Errorf("%w: %q already exists with different content", ErrNameConflict, full)
		}
		// Identical content: overwrite preserves identity, so outstanding
		// share tokens keep working.
		rec := *existing
		s.publishLocked(eventbus.Event{Kind: eventbus.FileUploaded, Payload: rec})
		return &rec, nil
	}

	rec := &model.File{
		ID:          uuid.NewString(),
		Name:        name,
		FolderPath:  folder,
		SizeBytes:   int64(len(content)),
		ContentHash: hash,
		MimeType:    mimeType,
		StorageKey:  storageKey,
		UploadedAt:  time.Now().UTC(),
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("persist file record: %w", err)
		}
	}
	s.ensureFoldersLocked(folder)
	s.files[rec.ID] = rec
	s.slots[full] = rec.ID

	out := *rec
	s.publishLocked(eventbus.Event{Kind: eventbus.FileUploaded, Payload: out})
	return &out, nil
}

// GetFile returns a copy of the record for fileID.
func (s *Store) GetFile(fileID string) (*model.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.files[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, fileID)
	}
	out := *rec
	return &out, nil
}

// ResolvePath returns the record at a full path like "docs/2024/report.pdf".
func (s *Store) ResolvePath(fullPath string) (*model.File, error) {
	norm, err := pathutil.Normalize(fullPath)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slots[norm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, norm)
	}
	out := *s.files[id]
	return &out, nil
}

// ListChildren returns the direct subfolders and files of folderPath,
// non-recursive, sorted by name. The root "" always exists; any other
// missing folder fails with ErrNotFound.
func (s *Store) ListChildren(folderPath string) ([]model.Folder, []model.File, error) {
	folder, err := pathutil.Normalize(folderPath)
	if err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if folder != "" {
		if _, ok := s.folders[folder]; !ok {
			return nil, nil, fmt.Errorf("%w: folder %q", ErrNotFound, folder)
		}
	}

	var subs []model.Folder
	for f := range s.folders {
		parent, name := pathutil.SplitFolderAndName(f)
		if parent == folder {
			subs = append(subs, model.Folder{Name: name, Path: f})
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })

	var files []model.File
	for _, rec := range s.files {
		if rec.FolderPath == folder {
			files = append(files, *rec)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return subs, files, nil
}

// DeleteFile removes the record and revokes every share token bound to it.
// The FileDeleted event is published only after revocation has completed.
// The removed record is returned so the caller can delete the stored blob.
func (s *Store) DeleteFile(ctx context.Context, fileID string) (*model.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, fileID)
	}
	if s.repo != nil {
		if err := s.repo.Delete(ctx, fileID); err != nil {
			return nil, fmt.Errorf("delete file record: %w", err)
		}
	}
	delete(s.files, fileID)
	delete(s.slots, rec.FullPath())

	out := *rec
	if s.revoker != nil {
		s.revoker.RevokeAllFor(fileID)
	}
	s.publishLocked(eventbus.Event{Kind: eventbus.FileDeleted, Payload: out})
	return &out, nil
}

// RecordDownload increments the download counter and returns the new count.
func (s *Store) RecordDownload(ctx context.Context, fileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[fileID]
	if !ok {
		return 0, fmt.Errorf("%w: id %s", ErrNotFound, fileID)
	}
	rec.DownloadCount++
	if s.repo != nil {
		if err := s.repo.Save(ctx, rec); err != nil {
			rec.DownloadCount--
			return 0, fmt.Errorf("persist download count: %w", err)
		}
	}
	out := *rec
	s.publishLocked(eventbus.Event{Kind: eventbus.FileDownloaded, Payload: out})
	return out.DownloadCount, nil
}

// Totals derives the aggregate counts over all files at call time.
func (s *Store) Totals() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st model.Stats
	for _, rec := range s.files {
		st.FileCount++
		st.TotalSizeBytes += rec.SizeBytes
		st.TotalDownloads += rec.DownloadCount
	}
	return st
}

func (s *Store) publishLocked(e eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
