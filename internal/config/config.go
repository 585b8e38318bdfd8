// Package config loads service settings from the environment (and an
// optional .env file).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendMemory    = "memory"
	BackendBadger    = "badger"
	BackendFirestore = "firestore"
	BackendLocal     = "local"
	BackendGCS       = "gcs"
)

// Config holds all settings for the converter binaries.
type Config struct {
	Port string `validate:"required,numeric"`

	MaxUploadBytes    int64         `validate:"gt=0"`
	PreviewRows       int           `validate:"gt=0"`
	ExtractionTimeout time.Duration `validate:"gt=0"`
	MaxConcurrent     int64         `validate:"gt=0"`
	PageWorkers       int           `validate:"gt=0"`

	StoreBackend        string `validate:"oneof=memory badger firestore"`
	BadgerDir           string `validate:"required_if=StoreBackend badger"`
	ProjectID           string `validate:"required_if=StoreBackend firestore,required_if=ArtifactBackend gcs"`
	FirestoreCollection string `validate:"required_if=StoreBackend firestore"`

	ArtifactBackend string `validate:"oneof=local gcs"`
	ArtifactDir     string `validate:"required_if=ArtifactBackend local"`
	ArtifactBucket  string `validate:"required_if=ArtifactBackend gcs"`
	ArtifactPrefix  string

	CORSOrigins []string `validate:"min=1,dive,required"`

	RetentionSchedule string
	RetentionMaxAge   time.Duration `validate:"gt=0"`

	ShutdownTimeout time.Duration `validate:"gt=0"`
	LogLevel        slog.Level
}

// Load reads the environment, applying defaults, and validates the result.
// A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	root := writableRoot()
	cfg := &Config{
		Port:                GetEnv("PORT", "8080"),
		MaxUploadBytes:      getInt64(&errs, "MAX_UPLOAD_BYTES", 10*1024*1024),
		PreviewRows:         int(getInt64(&errs, "PREVIEW_ROWS", 100)),
		ExtractionTimeout:   getDuration(&errs, "EXTRACTION_TIMEOUT", 60*time.Second),
		MaxConcurrent:       getInt64(&errs, "MAX_CONCURRENT_EXTRACTIONS", 4),
		PageWorkers:         int(getInt64(&errs, "PAGE_WORKERS", 4)),
		StoreBackend:        strings.ToLower(GetEnv("STORE_BACKEND", BackendMemory)),
		BadgerDir:           GetEnv("BADGER_DIR", filepath.Join(root, "data")),
		ProjectID:           GetEnv("PROJECT_ID", ""),
		FirestoreCollection: GetEnv("FIRESTORE_COLLECTION", "conversions"),
		ArtifactBackend:     strings.ToLower(GetEnv("ARTIFACT_BACKEND", BackendLocal)),
		ArtifactDir:         GetEnv("ARTIFACT_DIR", filepath.Join(root, "outputs")),
		ArtifactBucket:      GetEnv("ARTIFACT_BUCKET", ""),
		ArtifactPrefix:      GetEnv("ARTIFACT_PREFIX", ""),
		CORSOrigins:         splitList(GetEnv("CORS_ORIGINS", "*")),
		RetentionSchedule:   GetEnv("RETENTION_SCHEDULE", ""),
		RetentionMaxAge:     getDuration(&errs, "RETENTION_MAX_AGE", 24*time.Hour),
		ShutdownTimeout:     getDuration(&errs, "SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(GetEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL: %v", err))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writableRoot is the parent of the default data directories. Cloud
// Functions and Cloud Run only allow writes under the temp directory.
func writableRoot() string {
	if GetEnv("FUNCTION_TARGET", "") != "" || GetEnv("K_SERVICE", "") != "" {
		return os.TempDir()
	}
	return "."
}

var validate = validator.New()

// Validate checks field constraints and backend dependencies.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetEnv reads an environment variable or returns a default value when it
// is unset or empty.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt64(errs *[]string, key string, fallback int64) int64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not an integer", key, raw))
		return fallback
	}
	return v
}

func getDuration(errs *[]string, key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not a duration", key, raw))
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
