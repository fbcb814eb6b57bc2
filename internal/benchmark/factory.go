package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultJSONPath   = ".fmubench/benchmarks.json"
	DefaultSQLitePath = ".fmubench/benchmarks.db"
)

// StoreConfig holds configuration for the history backend
type StoreConfig struct {
	Type string `mapstructure:"type"` // "json", "sqlite", "postgres" or "gcs"
	Path string `mapstructure:"path"` // File path for JSON/SQLite, DSN for Postgres, gs:// URL for GCS
}

// NewStore creates a Store based on the provided configuration
func NewStore(config StoreConfig) (Store, error) {
	switch strings.ToLower(config.Type) {
	case "postgres", "postgresql":
		if config.Path == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return NewSQLStore("postgres", config.Path)
	case "sqlite", "sqlite3":
		if config.Path == "" {
			config.Path = DefaultSQLitePath
		}
		if err := ensureParentDir(config.Path); err != nil {
			return nil, err
		}
		return NewSQLStore("sqlite", config.Path)
	case "gcs":
		if config.Path == "" {
			return nil, fmt.Errorf("gcs store requires a gs://bucket/object path")
		}
		return NewGCSStore(context.Background(), config.Path)
	case "json", "":
		if config.Path == "" {
			config.Path = DefaultJSONPath
		}
		return NewFileStore(config.Path)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
