package model

import "time"

// AccessMode determines how a shared file is served, not what is stored.
type AccessMode string

const (
	ModeDirect    AccessMode = "direct"
	ModePreview   AccessMode = "preview"
	ModeDownload  AccessMode = "download"
	ModeThumbnail AccessMode = "thumbnail"
)

// ValidAccessMode reports whether s names one of the four access modes.
func ValidAccessMode(s string) bool {
	switch AccessMode(s) {
	case ModeDirect, ModePreview, ModeDownload, ModeThumbnail:
		return true
	}
	return false
}

// ShareToken grants time- and quantity-limited access to a single file.
// MaxDownloads == 0 means no download limit.
type ShareToken struct {
	Token         string     `json:"token"`
	FileID        string     `json:"file_id"`
	Mode          AccessMode `json:"mode"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	MaxDownloads  int        `json:"max_downloads,omitempty"`
	UsedDownloads int        `json:"used_downloads"`
}
