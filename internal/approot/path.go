// Package approot describes the on-disk layout of the xuan-brain storage root
// and the filesystem primitives used to relocate it.
package approot

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppFolderName is the fixed directory name of the storage root.
const AppFolderName = "xuan-brain"

// Storage root subdirectories.
const (
	SubdirData   = "data"
	SubdirFiles  = "files"
	SubdirCache  = "cache"
	SubdirConfig = "config"
	SubdirLogs   = "logs"
)

// DatabaseFile is the primary database inside the data subdirectory.
const DatabaseFile = "xuan-brain.db"

// LegacyDatabaseFile is the relational database written by releases that
// predate the graph store.
const LegacyDatabaseFile = "legacy.sqlite"

// Subdirs returns the five storage root subdirectories in copy order:
// database, config, files, cache, logs.
func Subdirs() []string {
	return []string{SubdirData, SubdirConfig, SubdirFiles, SubdirCache, SubdirLogs}
}

// DefaultBaseDir returns the platform application-data directory that holds
// the storage root when no custom location is configured.
// XUAN_BRAIN_HOME overrides the platform default.
func DefaultBaseDir() string {
	if v := os.Getenv("XUAN_BRAIN_HOME"); v != "" {
		return filepath.Clean(v)
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return cwd
	}

	switch runtime.GOOS {
	case "windows":
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			return v
		}
		return filepath.Join(home, "AppData", "Local")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support")
	default:
		if v := os.Getenv("XDG_DATA_HOME"); v != "" && filepath.IsAbs(v) {
			return v
		}
		return filepath.Join(home, ".local", "share")
	}
}

// Root returns the storage root for a base path. A base whose last path
// component already equals AppFolderName is the root itself; any other base
// gets the folder name appended.
func Root(base string) string {
	base = filepath.Clean(base)
	if filepath.Base(base) == AppFolderName {
		return base
	}
	return filepath.Join(base, AppFolderName)
}

// StripAppFolder is the inverse of Root: it removes a trailing AppFolderName
// component so the value can be persisted and re-expanded by Root.
func StripAppFolder(path string) string {
	path = filepath.Clean(path)
	if filepath.Base(path) == AppFolderName {
		return filepath.Dir(path)
	}
	return path
}

// SubdirPath returns the absolute path of a subdirectory under root.
func SubdirPath(root, subdir string) string {
	return filepath.Join(root, subdir)
}

// DatabasePath returns the primary database path under root.
func DatabasePath(root string) string {
	return filepath.Join(root, SubdirData, DatabaseFile)
}

// LegacyDatabasePath returns the legacy relational database path under root.
func LegacyDatabasePath(root string) string {
	return filepath.Join(root, SubdirData, LegacyDatabaseFile)
}

// SamePath reports whether a and b name the same location after cleaning
// and making both absolute.
func SamePath(a, b string) bool {
	return absClean(a) == absClean(b)
}

// IsWithin reports whether path lies strictly inside dir.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(absClean(dir), absClean(path))
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// EnsureLayout creates root and its five subdirectories if absent.
func EnsureLayout(root string) error {
	for _, sub := range Subdirs() {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return err
		}
	}
	return nil
}

// MissingSubdirs returns the subdirectories of root that do not exist as
// directories, in copy order.
func MissingSubdirs(root string) []string {
	var missing []string
	for _, sub := range Subdirs() {
		info, err := os.Stat(filepath.Join(root, sub))
		if err != nil || !info.IsDir() {
			missing = append(missing, sub)
		}
	}
	return missing
}
