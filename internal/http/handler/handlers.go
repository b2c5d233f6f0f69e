package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"fileshare/internal/config"
	"fileshare/internal/filestore"
	"fileshare/internal/metrics"
	"fileshare/internal/model"
	"fileshare/internal/service"
	"fileshare/internal/stats"
)

// treePath extracts the wildcard path segment, percent-decoded.
func treePath(c *fiber.Ctx) string {
	raw := c.Params("*")
	if p, err := url.PathUnescape(raw); err == nil {
		return p
	}
	return raw
}

// shareURLs builds the serving route for each access mode of one token.
func shareURLs(token string) fiber.Map {
	return fiber.Map{
		"file":      "/file/" + token,
		"preview":   "/preview/" + token,
		"share":     "/share/" + token,
		"thumbnail": "/thumbnail/" + token,
	}
}

// shareRouteFor maps an access mode to its serving route prefix.
func shareRouteFor(mode model.AccessMode) string {
	switch mode {
	case model.ModeDirect:
		return "file"
	case model.ModePreview:
		return "preview"
	case model.ModeThumbnail:
		return "thumbnail"
	default:
		return "share"
	}
}

// HealthCheck reports readiness. The database ping is skipped when the
// service runs without persistence.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadFile ingests a multipart upload (field "file", optional "folder_path").
func UploadFile(svc service.TransferService, upCfg config.UploadConfig, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if !upCfg.Allowed(fh.Filename) {
			return writeError(c, fiber.StatusBadRequest, "EXTENSION_NOT_ALLOWED", "file type is not allowed")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		folder := c.FormValue("folder_path")
		ct := fh.Header.Get("Content-Type")

		rec, err := svc.Upload(c.UserContext(), f, fh.Filename, folder, ct)
		if err != nil {
			return serviceError(c, err)
		}
		m.Uploads.Inc()

		// Every upload gets a ready-to-use share link.
		tok, err := svc.IssueShareLink(rec.FullPath(), model.ModeDownload, 0, 0)
		if err != nil {
			return serviceError(c, err)
		}
		m.SharesIssued.Inc()

		return writeData(c, fiber.StatusCreated, fiber.Map{
			"file":        rec,
			"share_token": tok.Token,
			"urls":        shareURLs(tok.Token),
		})
	}
}

type base64UploadRequest struct {
	Filename   string `json:"filename"`
	FolderPath string `json:"folder_path"`
	FileData   string `json:"file_data"`
}

// UploadBase64 ingests a JSON body carrying base64-encoded content.
func UploadBase64(svc service.TransferService, upCfg config.UploadConfig, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req base64UploadRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.Filename == "" || req.FileData == "" {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "filename and file_data are required")
		}
		if !upCfg.Allowed(req.Filename) {
			return writeError(c, fiber.StatusBadRequest, "EXTENSION_NOT_ALLOWED", "file type is not allowed")
		}

		rec, err := svc.UploadBase64(c.UserContext(), req.Filename, req.FolderPath, req.FileData)
		if err != nil {
			return serviceError(c, err)
		}
		m.Uploads.Inc()

		tok, err := svc.IssueShareLink(rec.FullPath(), model.ModeDownload, 0, 0)
		if err != nil {
			return serviceError(c, err)
		}
		m.SharesIssued.Inc()

		return writeData(c, fiber.StatusCreated, fiber.Map{
			"file":        rec,
			"share_token": tok.Token,
			"urls":        shareURLs(tok.Token),
		})
	}
}

// ListFiles lists the folders and files directly under ?folder= (root by default).
func ListFiles(store *filestore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		folder := c.Query("folder")
		folders, files, err := store.ListChildren(folder)
		if err != nil {
			return serviceError(c, err)
		}
		return writeData(c, fiber.StatusOK, fiber.Map{
			"folder":  folder,
			"folders": folders,
			"files":   files,
		})
	}
}

type createFolderRequest struct {
	FolderPath string `json:"folder_path"`
}

// CreateFolder creates a folder (and any missing ancestors).
func CreateFolder(store *filestore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createFolderRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := store.CreateFolder(req.FolderPath); err != nil {
			return serviceError(c, err)
		}
		return writeData(c, fiber.StatusCreated, fiber.Map{"folder_path": req.FolderPath})
	}
}

// DownloadFile streams the file at the wildcard path as an attachment.
func DownloadFile(svc service.TransferService, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, rec, err := svc.Download(c.UserContext(), treePath(c))
		if err != nil {
			return serviceError(c, err)
		}
		m.Downloads.Inc()

		c.Set(fiber.HeaderContentType, rec.MimeType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.Name))
		return c.SendStream(rc, int(rec.SizeBytes))
	}
}

// DeleteFile removes the file at the wildcard path.
func DeleteFile(svc service.TransferService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), treePath(c)); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type shareLinkRequest struct {
	Mode          string `json:"mode"`
	ExpiresInDays int    `json:"expires_in_days"`
	MaxDownloads  int    `json:"max_downloads"`
	Presigned     bool   `json:"presigned"`
}

// GenerateShareLink issues a share token for the file at the wildcard path.
// Mode defaults to download; a zero expiry uses the configured default TTL.
func GenerateShareLink(svc service.TransferService, shareCfg config.ShareConfig, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := shareLinkRequest{Mode: string(model.ModeDownload)}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}
		if req.Mode == "" {
			req.Mode = string(model.ModeDownload)
		}
		if !model.ValidAccessMode(req.Mode) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_MODE", "unknown access mode")
		}
		if req.ExpiresInDays < 0 || req.MaxDownloads < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		ttl := shareCfg.DefaultTTL
		if req.ExpiresInDays > 0 {
			ttl = time.Duration(req.ExpiresInDays) * 24 * time.Hour
		}

		tok, err := svc.IssueShareLink(treePath(c), model.AccessMode(req.Mode), ttl, req.MaxDownloads)
		if err != nil {
			return serviceError(c, err)
		}
		m.SharesIssued.Inc()

		data := fiber.Map{
			"share": tok,
			"url":   "/" + shareRouteFor(tok.Mode) + "/" + tok.Token,
		}
		if req.Presigned {
			// Time-limited URL straight from object storage, same lifetime
			// as the token.
			u, err := svc.PresignDownload(c.UserContext(), treePath(c), ttl)
			if err != nil {
				return serviceError(c, err)
			}
			data["presigned_url"] = u
		}
		return writeData(c, fiber.StatusCreated, data)
	}
}

// ServeShared streams a shared file. The disposition and whether the token's
// download budget is consumed depend on the serving mode.
func ServeShared(svc service.TransferService, mode model.AccessMode, m *metrics.Metrics) fiber.Handler {
	consume := mode == model.ModeDownload
	return func(c *fiber.Ctx) error {
		rc, rec, err := svc.OpenShared(c.UserContext(), c.Params("token"), consume)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set(fiber.HeaderContentType, rec.MimeType)
		if consume {
			m.Downloads.Inc()
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.Name))
		} else {
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", rec.Name))
		}
		return c.SendStream(rc, int(rec.SizeBytes))
	}
}

// Stats reports aggregate counts over the whole tree.
func Stats(agg *stats.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		totals := agg.Totals()
		return writeData(c, fiber.StatusOK, fiber.Map{
			"file_count":      totals.FileCount,
			"total_size":      totals.TotalSizeBytes,
			"total_size_mb":   stats.TotalSizeMB(totals),
			"total_downloads": totals.TotalDownloads,
		})
	}
}

// ChatUpload ingests a multipart attachment (fields "file" and "username")
// and posts it to the chat room.
func ChatUpload(svc service.TransferService, upCfg config.UploadConfig, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		username := c.FormValue("username")
		if username == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_USERNAME", "username is required")
		}
		if !upCfg.Allowed(fh.Filename) {
			return writeError(c, fiber.StatusBadRequest, "EXTENSION_NOT_ALLOWED", "file type is not allowed")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		msg, err := svc.AttachToChat(c.UserContext(), f, fh.Filename, username, fh.Header.Get("Content-Type"))
		if err != nil {
			return serviceError(c, err)
		}
		m.Uploads.Inc()
		return writeData(c, fiber.StatusCreated, msg)
	}
}
