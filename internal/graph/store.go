// Package graph is the record and edge store that backs the library.
//
// Records live in named tables and are addressed by table:key identifiers.
// Relationships are directed edges stored in their own edge tables, each
// pointing from an in record to an out record. Content is a JSON object.
package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/xuan-brain/xuan-brain/internal/graph/migrations"
)

// Store errors.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("graph: record not found")

	// ErrRecordExists is returned when creating a record or edge that already exists.
	ErrRecordExists = errors.New("graph: record already exists")

	// ErrDanglingEdge is returned when an edge endpoint does not exist.
	ErrDanglingEdge = errors.New("graph: edge endpoint does not exist")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("graph: store is closed")
)

// Row is one result row keyed by column name.
type Row map[string]any

// Store is a SQLite-backed graph store.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens or creates a graph store at path and applies pending schema
// migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("graph: create store directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("graph: open database: %w", err)
	}

	s := &Store{db: db, path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations.FS)
	if err != nil {
		return fmt.Errorf("graph: init migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("graph: run migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Debug("graph schema migration applied", "version", r.Source.Version, "path", s.path)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the store. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Create inserts a new record. content must encode to a JSON object; its
// "id" field is set to id.
func (s *Store) Create(ctx context.Context, id RecordID, content any) error {
	if err := id.Validate(); err != nil {
		return err
	}
	body, err := encodeObject(content, map[string]any{"id": id.String()})
	if err != nil {
		return fmt.Errorf("graph: encode %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graph: begin transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := recordExists(ctx, tx, id)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrRecordExists, id)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (tb, id, content) VALUES (?, ?, ?)`,
		id.Table, id.Key, body,
	); err != nil {
		return fmt.Errorf("graph: create %s: %w", id, err)
	}
	return tx.Commit()
}

// Select decodes the record content into out.
func (s *Store) Select(ctx context.Context, id RecordID, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM records WHERE tb = ? AND id = ?`,
		id.Table, id.Key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("graph: select %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("graph: decode %s: %w", id, err)
	}
	return nil
}

// Exists reports whether the record exists.
func (s *Store) Exists(ctx context.Context, id RecordID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrStoreClosed
	}
	return recordExists(ctx, s.db, id)
}

// Merge applies patch to the record content as a JSON merge patch.
// A nil value removes the field. The "id" field cannot be changed.
func (s *Store) Merge(ctx context.Context, id RecordID, patch map[string]any) error {
	clean := make(map[string]any, len(patch))
	for k, v := range patch {
		if k == "id" {
			continue
		}
		clean[k] = v
	}
	body, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("graph: encode patch for %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET content = json_patch(content, ?) WHERE tb = ? AND id = ?`,
		string(body), id.Table, id.Key,
	)
	if err != nil {
		return fmt.Errorf("graph: merge %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("graph: merge %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Relate creates a directed edge in -> edge -> out and returns its
// identifier. Both endpoints must exist and an edge table holds at most one
// edge per endpoint pair.
func (s *Store) Relate(ctx context.Context, in RecordID, edge string, out RecordID, content any) (RecordID, error) {
	if err := ValidateTable(edge); err != nil {
		return RecordID{}, err
	}
	if err := in.Validate(); err != nil {
		return RecordID{}, err
	}
	if err := out.Validate(); err != nil {
		return RecordID{}, err
	}

	id := NewRecordID(edge, ulid.Make())
	body, err := encodeObject(content, map[string]any{
		"id":  id.String(),
		"in":  in.String(),
		"out": out.String(),
	})
	if err != nil {
		return RecordID{}, fmt.Errorf("graph: encode %s: %w", edge, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return RecordID{}, ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RecordID{}, fmt.Errorf("graph: begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, end := range []RecordID{in, out} {
		ok, err := recordExists(ctx, tx, end)
		if err != nil {
			return RecordID{}, err
		}
		if !ok {
			return RecordID{}, fmt.Errorf("%w: %s", ErrDanglingEdge, end)
		}
	}

	var dup int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE tb = ? AND in_tb = ? AND in_id = ? AND out_tb = ? AND out_id = ?`,
		edge, in.Table, in.Key, out.Table, out.Key,
	).Scan(&dup)
	if err != nil {
		return RecordID{}, fmt.Errorf("graph: check %s: %w", edge, err)
	}
	if dup > 0 {
		return RecordID{}, fmt.Errorf("%w: %s %s -> %s", ErrRecordExists, edge, in, out)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO edges (tb, id, in_tb, in_id, out_tb, out_id, content) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.Table, id.Key, in.Table, in.Key, out.Table, out.Key, body,
	); err != nil {
		return RecordID{}, fmt.Errorf("graph: relate %s -> %s: %w", in, out, err)
	}
	if err := tx.Commit(); err != nil {
		return RecordID{}, fmt.Errorf("graph: commit %s: %w", edge, err)
	}
	return id, nil
}

// Count returns the number of records or edges in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	if err := ValidateTable(table); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM records WHERE tb = ?)
		     + (SELECT COUNT(*) FROM edges WHERE tb = ?)
	`, table, table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("graph: count %s: %w", table, err)
	}
	return n, nil
}

// DanglingEdges returns the number of edges with a missing endpoint.
func (s *Store) DanglingEdges(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges e
		WHERE NOT EXISTS (SELECT 1 FROM records r WHERE r.tb = e.in_tb AND r.id = e.in_id)
		   OR NOT EXISTS (SELECT 1 FROM records r WHERE r.tb = e.out_tb AND r.id = e.out_id)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("graph: count dangling edges: %w", err)
	}
	return n, nil
}

// Query runs a read statement against the records and edges tables and
// returns the bound rows. BLOB values are returned as strings.
func (s *Store) Query(ctx context.Context, statement string, args ...any) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("graph: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("graph: query columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("graph: scan row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("graph: iterate rows: %w", err)
	}
	return result, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func recordExists(ctx context.Context, q queryRower, id RecordID) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE tb = ? AND id = ?`,
		id.Table, id.Key,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("graph: lookup %s: %w", id, err)
	}
	return n > 0, nil
}

// encodeObject marshals content as a JSON object and overwrites the fields
// in set.
func encodeObject(content any, set map[string]any) (string, error) {
	obj := map[string]json.RawMessage{}
	if content != nil {
		data, err := json.Marshal(content)
		if err != nil {
			return "", err
		}
		if string(data) != "null" {
			if err := json.Unmarshal(data, &obj); err != nil {
				return "", fmt.Errorf("content is not a JSON object: %w", err)
			}
		}
	}
	for k, v := range set {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		obj[k] = raw
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
