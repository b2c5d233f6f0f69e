package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"fileshare/internal/config"
	"fileshare/internal/filestore"
	"fileshare/internal/metrics"
	"fileshare/internal/model"
	"fileshare/internal/service"
	"fileshare/internal/stats"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil when the service runs without persistence.
func RegisterRoutes(app *fiber.App, db *sql.DB, cfg *config.AppConfig, svc service.TransferService, store *filestore.Store, agg *stats.Aggregator, m *metrics.Metrics) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Post("/upload", UploadFile(svc, cfg.Upload, m))
	api.Post("/upload/base64", UploadBase64(svc, cfg.Upload, m))
	api.Get("/files", ListFiles(store))
	api.Post("/create-folder", CreateFolder(store))
	api.Get("/download/*", DownloadFile(svc, m))
	api.Delete("/delete/*", DeleteFile(svc))
	api.Post("/generate-share-link/*", GenerateShareLink(svc, cfg.Share, m))
	api.Get("/stats", Stats(agg))
	api.Post("/chat/upload", ChatUpload(svc, cfg.Upload, m))

	// Token-addressed serving routes; only /share spends the download budget.
	app.Get("/file/:token", ServeShared(svc, model.ModeDirect, m))
	app.Get("/preview/:token", ServeShared(svc, model.ModePreview, m))
	app.Get("/share/:token", ServeShared(svc, model.ModeDownload, m))
	app.Get("/thumbnail/:token", ServeShared(svc, model.ModeThumbnail, m))
}
