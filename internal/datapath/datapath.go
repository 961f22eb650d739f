// Package datapath persists the location of the storage root.
//
// The document lives at a fixed platform config path, outside the storage
// root, so it survives the root being moved or cleaned up.
package datapath

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuan-brain/xuan-brain/internal/approot"
)

// CurrentVersion is the only document version written today.
const CurrentVersion = 1

// FileName is the name of the persisted document.
const FileName = "data-path.json"

// Config is the persisted data path document.
type Config struct {
	// CustomDataPath is the base directory of the storage root, stored
	// without the trailing app folder name. Nil means the platform default.
	CustomDataPath *string `json:"custom_data_path"`

	Version int `json:"version"`

	// PendingCleanupPath is a superseded storage root that is safe to
	// delete on the next startup.
	PendingCleanupPath *string `json:"pending_cleanup_path"`
}

// Default returns the first-run document.
func Default() Config {
	return Config{Version: CurrentVersion}
}

// DefaultPath returns the platform location of the document.
// XUAN_BRAIN_CONFIG overrides it.
func DefaultPath() string {
	if v := os.Getenv("XUAN_BRAIN_CONFIG"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = approot.DefaultBaseDir()
	}
	return filepath.Join(dir, approot.AppFolderName, FileName)
}

// BaseDir returns the base directory the storage root lives in.
func (c Config) BaseDir(defaultBase string) string {
	if c.CustomDataPath != nil && *c.CustomDataPath != "" {
		return *c.CustomDataPath
	}
	return defaultBase
}

// Root returns the active storage root.
func (c Config) Root(defaultBase string) string {
	return approot.Root(c.BaseDir(defaultBase))
}

// Load reads the document at path. A missing file yields Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("datapath: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("datapath: decode %s: %w", path, err)
	}
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	return cfg, nil
}

// LoadOrCreate reads the document, writing the defaults first when it does
// not exist yet.
func LoadOrCreate(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Save atomically replaces the document at path.
func Save(path string, cfg Config) error {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("datapath: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("datapath: create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("datapath: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("datapath: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("datapath: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("datapath: close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("datapath: replace %s: %w", path, err)
	}

	success = true
	return nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
