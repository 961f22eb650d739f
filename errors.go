package xuanbrain

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the migration engines.
var (
	// ErrSourceRootMissing is returned when the storage root to migrate
	// from does not exist.
	ErrSourceRootMissing = errors.New("source storage root does not exist")

	// ErrSameLocation is returned when source and destination resolve to
	// the same storage root.
	ErrSameLocation = errors.New("source and destination are the same location")

	// ErrNestedLocation is returned when one storage root would be placed
	// inside the other.
	ErrNestedLocation = errors.New("source and destination storage roots overlap")

	// ErrStoreClosed is returned when operating on a closed client.
	ErrStoreClosed = errors.New("store is closed")

	// ErrUnsafeCleanupPath is returned when a pending cleanup path does not
	// look like a superseded storage root.
	ErrUnsafeCleanupPath = errors.New("refusing to delete path that is not a superseded storage root")

	// ErrCleanupPending is returned when a migration would overwrite the
	// record of a superseded storage root that could not be removed.
	ErrCleanupPending = errors.New("a superseded storage root is still pending cleanup")

	// ErrNoLegacyDatabase is returned when record migration is requested
	// but no relational database exists.
	ErrNoLegacyDatabase = errors.New("no legacy relational database found")
)

// MigrationErrorKind discriminates folder migration failures.
type MigrationErrorKind string

const (
	// PreparationFailed: preconditions failed before any file was copied.
	PreparationFailed MigrationErrorKind = "preparation_failed"

	// CopyFailed: a file or directory could not be copied.
	CopyFailed MigrationErrorKind = "copy_failed"

	// VerificationFailed: a destination subdirectory is missing after copy.
	VerificationFailed MigrationErrorKind = "verification_failed"

	// PersistFailed: the data path document could not be written.
	PersistFailed MigrationErrorKind = "persist_failed"

	// RollbackFailed: the destination could not be removed or the data
	// path document could not be restored. The system is inconsistent.
	RollbackFailed MigrationErrorKind = "rollback_failed"
)

// MigrationError is returned by DataMigrationService.
// Extractable via errors.As(). Supports Unwrap().
type MigrationError struct {
	Kind MigrationErrorKind

	// Phase is the phase that was running.
	Phase MigrationPhase

	// Path is the file or directory involved, when known.
	Path string

	// Subdir is the storage root subdirectory involved, when known.
	Subdir string

	Err error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration: %s during %s", e.Kind, e.Phase)
	if e.Subdir != "" {
		fmt.Fprintf(&b, " (subdir %s)", e.Subdir)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MigrationError) Unwrap() error { return e.Err }

// IsMigrationErrorKind reports whether err is a *MigrationError of kind.
func IsMigrationErrorKind(err error, kind MigrationErrorKind) bool {
	var me *MigrationError
	return errors.As(err, &me) && me.Kind == kind
}

// ValidationError is returned when configuration validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}
