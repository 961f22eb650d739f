package xuanbrain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuan-brain/xuan-brain/internal/approot"
	"github.com/xuan-brain/xuan-brain/internal/datapath"
)

// RunPendingCleanup deletes the storage root left behind by a successful
// migration and clears pending_cleanup_path. It returns the path removed,
// or "" when nothing was pending.
//
// A pending path is only deleted when its last component is the app folder
// name and it neither is nor overlaps the active root. Unsafe paths are
// dropped from the document without being touched. A failed delete keeps
// the entry so the next startup retries.
func RunPendingCleanup(ctx context.Context, configPath, defaultBase string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := datapath.Load(configPath)
	if err != nil {
		return "", err
	}
	if cfg.PendingCleanupPath == nil || *cfg.PendingCleanupPath == "" {
		return "", nil
	}

	pending := filepath.Clean(*cfg.PendingCleanupPath)
	active := cfg.Root(defaultBase)

	if reason := unsafeCleanupReason(pending, active); reason != "" {
		logger.Warn("refusing pending cleanup", "path", pending, "active", active, "reason", reason)
		cfg.PendingCleanupPath = nil
		if err := datapath.Save(configPath, cfg); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %s", ErrUnsafeCleanupPath, pending, reason)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.RemoveAll(pending); err != nil {
		logger.Warn("pending cleanup failed, will retry", "path", pending, "error", err)
		return "", fmt.Errorf("cleanup %s: %w", pending, err)
	}

	cfg.PendingCleanupPath = nil
	if err := datapath.Save(configPath, cfg); err != nil {
		return "", err
	}
	logger.Info("removed superseded storage root", "path", pending)
	return pending, nil
}

func unsafeCleanupReason(pending, active string) string {
	switch {
	case filepath.Base(pending) != approot.AppFolderName:
		return "not an app folder"
	case approot.SamePath(pending, active):
		return "is the active root"
	case approot.IsWithin(active, pending):
		return "contains the active root"
	case approot.IsWithin(pending, active):
		return "inside the active root"
	}
	return ""
}
