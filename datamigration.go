package xuanbrain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuan-brain/xuan-brain/internal/approot"
	"github.com/xuan-brain/xuan-brain/internal/datapath"
)

// smallMigrationFiles is the file count below which every copied file is
// reported. Larger migrations report every progressInterval files.
const (
	smallMigrationFiles = 50
	progressInterval    = 10
)

// copyPhases pairs each storage root subdirectory with its copy phase, in
// copy order.
var copyPhases = []struct {
	subdir string
	phase  MigrationPhase
}{
	{approot.SubdirData, PhaseCopyingDatabase},
	{approot.SubdirConfig, PhaseCopyingConfig},
	{approot.SubdirFiles, PhaseCopyingFiles},
	{approot.SubdirCache, PhaseCopyingCache},
	{approot.SubdirLogs, PhaseCopyingLogs},
}

// DataMigrationService relocates the storage root from one base directory
// to another.
//
// Migrate never deletes the source: on success the old root is recorded as
// pending cleanup. On failure the caller decides whether to retry or to call
// Rollback.
type DataMigrationService struct {
	sourceBase  string
	destBase    string
	sourceRoot  string
	destRoot    string
	configPath  string
	defaultBase string
	logger      *slog.Logger
}

// DataMigrationOption configures a DataMigrationService.
type DataMigrationOption func(*DataMigrationService)

// WithConfigPath sets where the data path document is written.
func WithConfigPath(path string) DataMigrationOption {
	return func(s *DataMigrationService) { s.configPath = path }
}

// WithDefaultBase sets the platform default base directory used by Rollback.
func WithDefaultBase(base string) DataMigrationOption {
	return func(s *DataMigrationService) { s.defaultBase = base }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) DataMigrationOption {
	return func(s *DataMigrationService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewDataMigrationService prepares a migration from sourceBase to destBase.
// Either base may already end in the app folder name.
func NewDataMigrationService(sourceBase, destBase string, opts ...DataMigrationOption) *DataMigrationService {
	s := &DataMigrationService{
		sourceBase:  sourceBase,
		destBase:    destBase,
		sourceRoot:  approot.Root(sourceBase),
		destRoot:    approot.Root(destBase),
		configPath:  datapath.DefaultPath(),
		defaultBase: approot.DefaultBaseDir(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SourceRoot returns the storage root being migrated from.
func (s *DataMigrationService) SourceRoot() string { return s.sourceRoot }

// DestRoot returns the storage root being migrated to.
func (s *DataMigrationService) DestRoot() string { return s.destRoot }

// progress tracks file counts for one run.
type progress struct {
	sink      ProgressSink
	logger    *slog.Logger
	phase     MigrationPhase
	total     int
	processed int
}

func (p *progress) emit(file *string, errMsg *string) {
	if p.processed > p.total {
		p.total = p.processed
	}
	emitProgress(p.logger, p.sink, MigrationStatus{
		Phase:          p.phase,
		CurrentFile:    file,
		TotalFiles:     p.total,
		ProcessedFiles: p.processed,
		Error:          errMsg,
	})
}

func (p *progress) enter(phase MigrationPhase) {
	p.phase = phase
	p.emit(nil, nil)
}

func (p *progress) fileDone(rel string) {
	p.processed++
	if p.total < smallMigrationFiles || p.processed%progressInterval == 0 {
		p.emit(&rel, nil)
	}
}

func (p *progress) fail(err error) {
	msg := err.Error()
	p.emit(nil, &msg)
}

// Migrate copies the storage root to the destination, verifies it and
// records the destination as the active location. Any error aborts the run
// and leaves the destination partially populated until Rollback.
func (s *DataMigrationService) Migrate(ctx context.Context, sink ProgressSink) error {
	start := time.Now()
	p := &progress{sink: sink, logger: s.logger, total: 1}

	err := s.migrate(ctx, p)
	if err != nil {
		p.fail(err)
		s.logger.Error("data migration failed",
			"phase", p.phase, "source", s.sourceRoot, "dest", s.destRoot, "error", err)
		return err
	}

	s.logger.Info("data migration completed",
		"source", s.sourceRoot, "dest", s.destRoot,
		"files", p.processed, "duration", time.Since(start))
	return nil
}

func (s *DataMigrationService) migrate(ctx context.Context, p *progress) error {
	p.enter(PhasePreparing)
	if err := s.prepare(ctx); err != nil {
		return err
	}

	subdirs := make([]string, 0, len(copyPhases))
	for _, cp := range copyPhases {
		subdirs = append(subdirs, approot.SubdirPath(s.sourceRoot, cp.subdir))
	}
	total, err := approot.CountFiles(subdirs...)
	if err != nil {
		return &MigrationError{Kind: PreparationFailed, Phase: PhasePreparing, Path: s.sourceRoot, Err: err}
	}
	p.total = max(total, 1)
	s.logger.Info("data migration started",
		"source", s.sourceRoot, "dest", s.destRoot, "count", total)

	for _, cp := range copyPhases {
		if err := ctx.Err(); err != nil {
			return &MigrationError{Kind: CopyFailed, Phase: cp.phase, Subdir: cp.subdir, Err: err}
		}
		p.enter(cp.phase)

		src := approot.SubdirPath(s.sourceRoot, cp.subdir)
		dst := approot.SubdirPath(s.destRoot, cp.subdir)
		err := approot.CopyTree(src, dst, func(rel string) {
			s.logger.Debug("copied file", "subdir", cp.subdir, "path", rel)
			p.fileDone(rel)
		})
		if err != nil {
			me := &MigrationError{Kind: CopyFailed, Phase: cp.phase, Subdir: cp.subdir, Err: err}
			var pe *fs.PathError
			if errors.As(err, &pe) {
				me.Path = pe.Path
			}
			return me
		}
		p.emit(nil, nil)
	}

	p.enter(PhaseVerifying)
	if err := s.verify(); err != nil {
		return err
	}

	if err := s.persist(); err != nil {
		return err
	}

	p.enter(PhaseCompleted)
	return nil
}

func (s *DataMigrationService) prepare(ctx context.Context) error {
	info, err := os.Stat(s.sourceRoot)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", s.sourceRoot)
		}
		return &MigrationError{
			Kind:  PreparationFailed,
			Phase: PhasePreparing,
			Path:  s.sourceRoot,
			Err:   errors.Join(ErrSourceRootMissing, err),
		}
	}

	if approot.SamePath(s.sourceRoot, s.destRoot) {
		return &MigrationError{Kind: PreparationFailed, Phase: PhasePreparing, Path: s.destRoot, Err: ErrSameLocation}
	}
	if approot.IsWithin(s.destRoot, s.sourceRoot) || approot.IsWithin(s.sourceRoot, s.destRoot) {
		return &MigrationError{Kind: PreparationFailed, Phase: PhasePreparing, Path: s.destRoot, Err: ErrNestedLocation}
	}

	if err := s.clearPendingCleanup(ctx); err != nil {
		return &MigrationError{Kind: PreparationFailed, Phase: PhasePreparing, Path: s.configPath, Err: err}
	}

	if err := approot.EnsureLayout(s.destRoot); err != nil {
		return &MigrationError{Kind: PreparationFailed, Phase: PhasePreparing, Path: s.destRoot, Err: err}
	}
	return nil
}

// clearPendingCleanup removes the root superseded by an earlier migration,
// since persist records this run's source in its place. An unreadable
// document is left for persist to replace.
func (s *DataMigrationService) clearPendingCleanup(ctx context.Context) error {
	cfg, err := datapath.Load(s.configPath)
	if err != nil || cfg.PendingCleanupPath == nil || *cfg.PendingCleanupPath == "" {
		return nil
	}

	pending := filepath.Clean(*cfg.PendingCleanupPath)
	if approot.SamePath(pending, s.sourceRoot) ||
		approot.IsWithin(s.sourceRoot, pending) || approot.IsWithin(pending, s.sourceRoot) {
		return fmt.Errorf("%w: %s overlaps the migration source", ErrCleanupPending, pending)
	}

	_, err = RunPendingCleanup(ctx, s.configPath, s.defaultBase, s.logger)
	switch {
	case err == nil, errors.Is(err, ErrUnsafeCleanupPath):
		// An unsafe entry is dropped untouched; nothing is left to track.
		return nil
	default:
		return errors.Join(ErrCleanupPending, err)
	}
}

func (s *DataMigrationService) verify() error {
	if missing := approot.MissingSubdirs(s.destRoot); len(missing) > 0 {
		return &MigrationError{
			Kind:   VerificationFailed,
			Phase:  PhaseVerifying,
			Subdir: missing[0],
			Path:   approot.SubdirPath(s.destRoot, missing[0]),
			Err:    fmt.Errorf("missing subdirectories %v", missing),
		}
	}

	db := approot.DatabasePath(s.destRoot)
	if _, err := os.Stat(db); err != nil {
		s.logger.Warn("primary database not found in destination", "path", db, "error", err)
	}
	return nil
}

func (s *DataMigrationService) persist() error {
	cfg, err := datapath.Load(s.configPath)
	if err != nil {
		// A corrupt document is replaced rather than blocking the move.
		s.logger.Warn("data path document unreadable, rewriting", "path", s.configPath, "error", err)
		cfg = datapath.Default()
	}

	cfg.CustomDataPath = datapath.StringPtr(approot.StripAppFolder(s.destRoot))
	cfg.PendingCleanupPath = datapath.StringPtr(s.sourceRoot)
	cfg.Version = datapath.CurrentVersion

	if err := datapath.Save(s.configPath, cfg); err != nil {
		return &MigrationError{Kind: PersistFailed, Phase: PhaseVerifying, Path: s.configPath, Err: err}
	}
	return nil
}

// Rollback removes the destination root and points the data path document
// back at the source. It refuses to run when the source root no longer
// exists. A failure leaves the system inconsistent and is always returned.
func (s *DataMigrationService) Rollback(ctx context.Context, sink ProgressSink) error {
	p := &progress{sink: sink, logger: s.logger, total: 1}
	p.enter(PhaseRollingBack)

	if err := s.rollback(); err != nil {
		p.fail(err)
		s.logger.Error("data migration rollback failed", "dest", s.destRoot, "error", err)
		return err
	}

	s.logger.Info("data migration rolled back", "source", s.sourceRoot, "dest", s.destRoot)
	return nil
}

func (s *DataMigrationService) rollback() error {
	// Removing the destination must never touch the source.
	if approot.SamePath(s.sourceRoot, s.destRoot) {
		return &MigrationError{Kind: RollbackFailed, Phase: PhaseRollingBack, Path: s.destRoot, Err: ErrSameLocation}
	}
	if approot.IsWithin(s.sourceRoot, s.destRoot) || approot.IsWithin(s.destRoot, s.sourceRoot) {
		return &MigrationError{Kind: RollbackFailed, Phase: PhaseRollingBack, Path: s.destRoot, Err: ErrNestedLocation}
	}

	// Without the source, the destination is the only copy left.
	if info, err := os.Stat(s.sourceRoot); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", s.sourceRoot)
		}
		return &MigrationError{
			Kind:  RollbackFailed,
			Phase: PhaseRollingBack,
			Path:  s.sourceRoot,
			Err:   errors.Join(ErrSourceRootMissing, err),
		}
	}

	if err := os.RemoveAll(s.destRoot); err != nil {
		return &MigrationError{Kind: RollbackFailed, Phase: PhaseRollingBack, Path: s.destRoot, Err: err}
	}

	cfg, err := datapath.Load(s.configPath)
	if err != nil {
		s.logger.Warn("data path document unreadable, rewriting", "path", s.configPath, "error", err)
		cfg = datapath.Default()
	}
	if approot.SamePath(s.sourceRoot, approot.Root(s.defaultBase)) {
		cfg.CustomDataPath = nil
	} else {
		cfg.CustomDataPath = datapath.StringPtr(approot.StripAppFolder(s.sourceRoot))
	}
	cfg.PendingCleanupPath = nil
	cfg.Version = datapath.CurrentVersion

	if err := datapath.Save(s.configPath, cfg); err != nil {
		return &MigrationError{Kind: RollbackFailed, Phase: PhaseRollingBack, Path: s.configPath, Err: err}
	}
	return nil
}
