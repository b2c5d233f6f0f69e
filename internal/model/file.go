package model

import "time"

// File represents an uploaded file in the folder tree.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type File struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FolderPath    string    `json:"folder_path"`
	SizeBytes     int64     `json:"size_bytes"`
	ContentHash   string    `json:"md5"`
	MimeType      string    `json:"mime_type"`
	StorageKey    string    `json:"-"`
	UploadedAt    time.Time `json:"uploaded_at"`
	DownloadCount int64     `json:"downloads"`
}

// FullPath returns the tree position of the file, e.g. "docs/2024/report.pdf".
func (f *File) FullPath() string {
	if f.FolderPath == "" {
		return f.Name
	}
	return f.FolderPath + "/" + f.Name
}

// Folder is a node in the folder tree as returned by listing operations.
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Stats holds the aggregate totals derived from the file tree.
type Stats struct {
	FileCount      int   `json:"total_files"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
	TotalDownloads int64 `json:"total_downloads"`
}
