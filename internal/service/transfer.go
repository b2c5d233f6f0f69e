package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fileshare/internal/chat"
	"fileshare/internal/filestore"
	"fileshare/internal/model"
	"fileshare/internal/sharelink"
	"fileshare/internal/storage"
)

var (
	ErrReaderNil     = errors.New("reader is nil")
	ErrNameRequired  = errors.New("filename is required")
	ErrTokenRequired = errors.New("token is required")
)

// ChatFolder is the folder chat attachments are uploaded into.
const ChatFolder = "chat"

// TransferService defines the use cases that move file content between
// clients, blob storage, and the file store.
type TransferService interface {
	// Upload ingests a fully-received file: the blob goes to object storage,
	// the metadata to the file store; storage is rolled back if ingestion
	// fails or resolves to an already-existing identical file.
	Upload(ctx context.Context, r io.Reader, filename, folderPath, contentType string) (*model.File, error)

	// UploadBase64 decodes data and uploads it under filename.
	UploadBase64(ctx context.Context, filename, folderPath, data string) (*model.File, error)

	// Download streams the file at a full tree path and records the download.
	Download(ctx context.Context, fullPath string) (io.ReadCloser, *model.File, error)

	// Delete removes the blob and the file record; share tokens bound to the
	// file become permanently invalid.
	Delete(ctx context.Context, fullPath string) error

	// IssueShareLink creates a share token for the file at fullPath.
	IssueShareLink(fullPath string, mode model.AccessMode, ttl time.Duration, maxDownloads int) (*model.ShareToken, error)

	// PresignDownload returns a time-limited URL serving the file's bytes
	// straight from object storage, bypassing this service.
	PresignDownload(ctx context.Context, fullPath string, expiry time.Duration) (string, error)

	// OpenShared validates token and streams the shared file. When consume
	// is true the token's download budget is spent and the download counted;
	// render-only modes pass false.
	OpenShared(ctx context.Context, token string, consume bool) (io.ReadCloser, *model.File, error)

	// AttachToChat uploads a chat attachment and posts it to the room as an
	// image or file message depending on the filename.
	AttachToChat(ctx context.Context, r io.Reader, filename, username, contentType string) (*model.ChatMessage, error)
}

type transferService struct {
	blobs storage.Storage
	files *filestore.Store
	links *sharelink.Registry
	room  *chat.Room
}

// NewTransferService constructs a TransferService over the given components.
func NewTransferService(blobs storage.Storage, files *filestore.Store, links *sharelink.Registry, room *chat.Room) TransferService {
	return &transferService{blobs: blobs, files: files, links: links, room: room}
}

func (s *transferService) Upload(ctx context.Context, r io.Reader, filename, folderPath, contentType string) (*model.File, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if filename == "" {
		return nil, ErrNameRequired
	}
	// The whole payload is buffered: the content hash must be computed
	// before the record is committed, and uploads are size-capped at the
	// HTTP boundary.
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}

	// Blob key is UUID + original extension, decoupled from the tree path.
	key := "files/" + uuid.NewString() + filepath.Ext(filename)
	if _, err := s.blobs.Put(ctx, key, bytes.NewReader(content), storage.PutOptions{
		Size:        int64(len(content)),
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": filename},
	}); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	rec, err := s.files.PutFile(ctx, folderPath, filename, content, contentType, key)
	if err != nil {
		// Rollback: remove the orphaned blob.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("ingest failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, err
	}
	if rec.StorageKey != key {
		// Identical re-upload kept the existing identity; the blob written
		// above is unreferenced.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			return rec, fmt.Errorf("orphan blob cleanup failed: %w", delErr)
		}
	}
	return rec, nil
}

func (s *transferService) UploadBase64(ctx context.Context, filename, folderPath, data string) (*model.File, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return s.Upload(ctx, bytes.NewReader(raw), filename, folderPath, "")
}

func (s *transferService) Download(ctx context.Context, fullPath string) (io.ReadCloser, *model.File, error) {
	rec, err := s.files.ResolvePath(fullPath)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Get(ctx, rec.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.files.RecordDownload(ctx, rec.ID); err != nil {
		rc.Close()
		return nil, nil, err
	}
	rec.DownloadCount++
	return rc, rec, nil
}

func (s *transferService) Delete(ctx context.Context, fullPath string) error {
	rec, err := s.files.ResolvePath(fullPath)
	if err != nil {
		return err
	}
	// Delete the blob first; if that fails, keep the record so the file is
	// not silently lost.
	if err := s.blobs.Delete(ctx, rec.StorageKey); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	_, err = s.files.DeleteFile(ctx, rec.ID)
	return err
}

func (s *transferService) IssueShareLink(fullPath string, mode model.AccessMode, ttl time.Duration, maxDownloads int) (*model.ShareToken, error) {
	rec, err := s.files.ResolvePath(fullPath)
	if err != nil {
		return nil, err
	}
	return s.links.Issue(rec.ID, mode, ttl, maxDownloads)
}

func (s *transferService) PresignDownload(ctx context.Context, fullPath string, expiry time.Duration) (string, error) {
	rec, err := s.files.ResolvePath(fullPath)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, rec.StorageKey, expiry)
}

func (s *transferService) OpenShared(ctx context.Context, token string, consume bool) (io.ReadCloser, *model.File, error) {
	if token == "" {
		return nil, nil, ErrTokenRequired
	}
	var (
		grant sharelink.Grant
		err   error
	)
	if consume {
		grant, err = s.links.Redeem(token)
	} else {
		grant, err = s.links.Resolve(token)
	}
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.files.GetFile(grant.FileID)
	if err != nil {
		// The file vanished between validation and lookup; report it the
		// same way a revoked token would.
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, nil, sharelink.ErrFileGone
		}
		return nil, nil, err
	}
	rc, _, err := s.blobs.Get(ctx, rec.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	if consume {
		if _, err := s.files.RecordDownload(ctx, rec.ID); err != nil {
			rc.Close()
			return nil, nil, err
		}
		rec.DownloadCount++
	}
	return rc, rec, nil
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".webp": {},
}

func isImage(filename string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func (s *transferService) AttachToChat(ctx context.Context, r io.Reader, filename, username, contentType string) (*model.ChatMessage, error) {
	if filename == "" {
		return nil, ErrNameRequired
	}
	// Prefix with a millisecond timestamp so concurrent chat uploads of the
	// same filename never collide in the chat folder.
	stored := fmt.Sprintf("chat_%d_%s", time.Now().UnixMilli(), filename)
	rec, err := s.Upload(ctx, r, stored, ChatFolder, contentType)
	if err != nil {
		return nil, err
	}
	typ := model.MessageFile
	if isImage(filename) {
		typ = model.MessageImage
	}
	return s.room.Post(username, typ, rec.ID)
}
