package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL connection settings for the optional
// metadata persistence backing. An empty Host disables it (memory-only).
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for uploaded file content.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ShareConfig controls share link issuance.
type ShareConfig struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

// UploadConfig bounds what the HTTP boundary accepts.
type UploadConfig struct {
	MaxSizeBytes      int64
	AllowedExtensions map[string]struct{}
}

// ChatConfig controls the shared chat room.
type ChatConfig struct {
	HistoryReplay int // messages replayed to a newly connected socket
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Share    ShareConfig
	Upload   UploadConfig
	Chat     ChatConfig
}

// Allowed reports whether a filename's extension is accepted for upload.
// An empty allow-list accepts everything.
func (u UploadConfig) Allowed(filename string) bool {
	if len(u.AllowedExtensions) == 0 {
		return true
	}
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	_, ok := u.AllowedExtensions[strings.ToLower(filename[i+1:])]
	return ok
}

const defaultExtensions = "txt,pdf,png,jpg,jpeg,gif,zip,doc,docx,xls,xlsx"

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	exts := make(map[string]struct{})
	for _, e := range strings.Split(getEnv("UPLOAD_ALLOWED_EXTENSIONS", defaultExtensions), ",") {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			exts[e] = struct{}{}
		}
	}

	return &AppConfig{
		AppHost: getEnv("APP_HOST", ""),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Share: ShareConfig{
			DefaultTTL:    time.Duration(getEnvInt("SHARE_DEFAULT_TTL_DAYS", 7)) * 24 * time.Hour,
			SweepInterval: time.Duration(getEnvInt("SHARE_SWEEP_INTERVAL_MIN", 60)) * time.Minute,
		},
		Upload: UploadConfig{
			MaxSizeBytes:      int64(getEnvInt("UPLOAD_MAX_SIZE_MB", 100)) * 1024 * 1024,
			AllowedExtensions: exts,
		},
		Chat: ChatConfig{
			HistoryReplay: getEnvInt("CHAT_HISTORY_REPLAY", 20),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
