package xuanbrain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/xuan-brain/xuan-brain/internal/approot"
	"github.com/xuan-brain/xuan-brain/internal/datapath"
	"github.com/xuan-brain/xuan-brain/internal/graph"
	"github.com/xuan-brain/xuan-brain/internal/relational"
)

// Client resolves the active storage root and runs the migration engines
// against it. It holds no database handle between calls, so the storage
// root can be moved while the client is open.
type Client struct {
	config    Config
	logger    *slog.Logger
	logCloser io.Closer

	mu     sync.Mutex
	closed bool
}

// DataLocation describes where data currently lives.
type DataLocation struct {
	ConfigPath         string   `json:"config_path"`
	DefaultBase        string   `json:"default_base"`
	BaseDir            string   `json:"base_dir"`
	Root               string   `json:"root"`
	CustomDataPath     *string  `json:"custom_data_path"`
	PendingCleanupPath *string  `json:"pending_cleanup_path"`
	DatabasePath       string   `json:"database_path"`
	DatabasePresent    bool     `json:"database_present"`
	LegacyDatabasePath string   `json:"legacy_database_path"`
	LegacyPresent      bool     `json:"legacy_present"`
	MissingSubdirs     []string `json:"missing_subdirs"`
}

// RecordMigrationResult is the outcome of Client.MigrateRecords.
type RecordMigrationResult struct {
	// Skipped is set when the graph store already held every record.
	Skipped bool `json:"skipped"`

	// Report is the migration report. Nil when Skipped.
	Report *MigrationReport `json:"report,omitempty"`

	// Verified holds the counts read back from the graph store.
	Verified *MigrationReport `json:"verified"`

	// DanglingEdges is the number of edges with a missing endpoint.
	DanglingEdges int `json:"dangling_edges"`
}

// New creates a client. Pending cleanup from an earlier migration runs
// here; a cleanup failure is logged and does not fail New.
func New(cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	c := &Client{config: cfg, logger: logger, logCloser: closer}

	if _, err := datapath.LoadOrCreate(cfg.ConfigPath); err != nil {
		closer.Close()
		return nil, fmt.Errorf("client: %w", err)
	}

	if _, err := RunPendingCleanup(context.Background(), cfg.ConfigPath, cfg.BaseDir, logger); err != nil {
		logger.Warn("pending cleanup did not complete", "error", err)
	}

	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

func (c *Client) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrStoreClosed
	}
	return nil
}

// Info reports the active storage location.
func (c *Client) Info() (*DataLocation, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	cfg, err := datapath.Load(c.config.ConfigPath)
	if err != nil {
		return nil, err
	}

	root := cfg.Root(c.config.BaseDir)
	info := &DataLocation{
		ConfigPath:         c.config.ConfigPath,
		DefaultBase:        c.config.BaseDir,
		BaseDir:            cfg.BaseDir(c.config.BaseDir),
		Root:               root,
		CustomDataPath:     cfg.CustomDataPath,
		PendingCleanupPath: cfg.PendingCleanupPath,
		DatabasePath:       approot.DatabasePath(root),
		LegacyDatabasePath: approot.LegacyDatabasePath(root),
		MissingSubdirs:     approot.MissingSubdirs(root),
	}
	info.DatabasePresent = fileExists(info.DatabasePath)
	info.LegacyPresent = fileExists(info.LegacyDatabasePath)
	if info.MissingSubdirs == nil {
		info.MissingSubdirs = []string{}
	}
	return info, nil
}

// ChangeDataLocation moves the storage root to destBase. When the copy
// fails after preparation, the partial destination is rolled back and both
// errors are returned.
func (c *Client) ChangeDataLocation(ctx context.Context, destBase string, sink ProgressSink) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	cfg, err := datapath.Load(c.config.ConfigPath)
	if err != nil {
		return err
	}

	svc := NewDataMigrationService(cfg.BaseDir(c.config.BaseDir), destBase,
		WithConfigPath(c.config.ConfigPath),
		WithDefaultBase(c.config.BaseDir),
		WithLogger(c.logger),
	)

	err = svc.Migrate(ctx, sink)
	if err == nil {
		return nil
	}
	if IsMigrationErrorKind(err, PreparationFailed) {
		return err
	}
	return errors.Join(err, svc.Rollback(ctx, sink))
}

// RollbackDataLocation undoes a migration from sourceBase to destBase.
func (c *Client) RollbackDataLocation(ctx context.Context, sourceBase, destBase string, sink ProgressSink) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	svc := NewDataMigrationService(sourceBase, destBase,
		WithConfigPath(c.config.ConfigPath),
		WithDefaultBase(c.config.BaseDir),
		WithLogger(c.logger),
	)
	return svc.Rollback(ctx, sink)
}

// Cleanup runs pending cleanup now.
func (c *Client) Cleanup(ctx context.Context) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	return RunPendingCleanup(ctx, c.config.ConfigPath, c.config.BaseDir, c.logger)
}

// MigrateRecords copies the legacy relational database into the graph
// store. Unless force is set, nothing is migrated when the graph store
// already holds at least as many papers, authors and categories.
func (c *Client) MigrateRecords(ctx context.Context, force bool) (*RecordMigrationResult, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	root, err := c.activeRoot()
	if err != nil {
		return nil, err
	}

	legacyPath := approot.LegacyDatabasePath(root)
	if !fileExists(legacyPath) {
		return nil, fmt.Errorf("%w: %s", ErrNoLegacyDatabase, legacyPath)
	}

	src, err := relational.OpenReadOnly(legacyPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := graph.Open(approot.DatabasePath(root), graph.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	m := NewRecordMigrator(src, dst, WithMigratorLogger(c.logger))
	result := &RecordMigrationResult{}

	if !force {
		needed, err := m.NeedsMigration(ctx)
		if err != nil {
			return nil, err
		}
		if !needed {
			c.logger.Info("record migration not needed", "root", root)
			result.Skipped = true
		}
	}
	if !result.Skipped {
		result.Report = m.MigrateAll(ctx)
	}

	result.Verified = m.VerifyCounts(ctx)
	if result.DanglingEdges, err = dst.DanglingEdges(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyRecordCounts reads record and relation counts from the graph store.
func (c *Client) VerifyRecordCounts(ctx context.Context) (*MigrationReport, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	root, err := c.activeRoot()
	if err != nil {
		return nil, err
	}

	dst, err := graph.Open(approot.DatabasePath(root), graph.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	return NewRecordMigrator(nil, dst, WithMigratorLogger(c.logger)).VerifyCounts(ctx), nil
}

// Close releases the log file. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.logCloser != nil {
		return c.logCloser.Close()
	}
	return nil
}

func (c *Client) activeRoot() (string, error) {
	cfg, err := datapath.Load(c.config.ConfigPath)
	if err != nil {
		return "", err
	}
	return cfg.Root(c.config.BaseDir), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
