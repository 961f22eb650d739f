// Package relational is the legacy SQLite library database that record
// migration reads from.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/xuan-brain/xuan-brain/internal/relational/migrations"
)

// Store errors.
var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("relational: row not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("relational: store is closed")

	// ErrUnknownKind is returned for a kind with no backing table.
	ErrUnknownKind = errors.New("relational: unknown kind")

	// ErrSchemaMissing is returned by OpenReadOnly when a library table
	// does not exist.
	ErrSchemaMissing = errors.New("relational: library table missing")
)

// Store is the relational library database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("relational: create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("relational: open database: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("relational: init migrations: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("relational: run migrations: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing library database without writing to it.
// No schema migrations run, so databases created outside this package open
// as long as every library table is present.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("relational: open database: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("relational: open database: %w", err)
	}

	dsn := "file:" + (&url.URL{Path: filepath.ToSlash(abs)}).EscapedPath() +
		"?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("relational: open database: %w", err)
	}

	if err := checkSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func checkSchema(ctx context.Context, db *sql.DB) error {
	for _, k := range Kinds() {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, string(k)).Scan(&n)
		if err != nil {
			return fmt.Errorf("relational: inspect schema: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrSchemaMissing, k)
		}
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

// Labels returns every label ordered by id.
func (s *Store) Labels(ctx context.Context) ([]Label, error) {
	var out []Label
	err := s.each(ctx, `SELECT id, name, color, document_count, created_at, updated_at FROM labels ORDER BY id`, nil,
		func(sc scanner) error {
			var l Label
			var created, updated string
			if err := sc.Scan(&l.ID, &l.Name, &l.Color, &l.DocumentCount, &created, &updated); err != nil {
				return err
			}
			l.CreatedAt, l.UpdatedAt = parseTime(created), parseTime(updated)
			out = append(out, l)
			return nil
		})
	return out, err
}

// Keywords returns every keyword ordered by id.
func (s *Store) Keywords(ctx context.Context) ([]Keyword, error) {
	var out []Keyword
	err := s.each(ctx, `SELECT id, word, created_at FROM keywords ORDER BY id`, nil,
		func(sc scanner) error {
			var k Keyword
			var created string
			if err := sc.Scan(&k.ID, &k.Word, &created); err != nil {
				return err
			}
			k.CreatedAt = parseTime(created)
			out = append(out, k)
			return nil
		})
	return out, err
}

// Authors returns every author ordered by id.
func (s *Store) Authors(ctx context.Context) ([]Author, error) {
	var out []Author
	err := s.each(ctx, `SELECT id, name, affiliation, email, created_at, updated_at FROM authors ORDER BY id`, nil,
		func(sc scanner) error {
			var a Author
			var created, updated string
			if err := sc.Scan(&a.ID, &a.Name, &a.Affiliation, &a.Email, &created, &updated); err != nil {
				return err
			}
			a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
			out = append(out, a)
			return nil
		})
	return out, err
}

// Categories returns every category ordered by id.
func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.each(ctx, `
		SELECT id, name, parent_id, sort_order, document_count, created_at, updated_at
		FROM categories ORDER BY id`, nil,
		func(sc scanner) error {
			var c Category
			var created, updated string
			if err := sc.Scan(&c.ID, &c.Name, &c.ParentID, &c.SortOrder, &c.DocumentCount, &created, &updated); err != nil {
				return err
			}
			c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
			out = append(out, c)
			return nil
		})
	return out, err
}

const paperColumns = `id, title, abstract, doi, publication_year, publication_date, journal_name,
	conference_name, volume, issue, pages, url, citation_count, read_status, notes,
	deleted_at, created_at, updated_at`

// Papers returns papers ordered by id. Soft-deleted papers are skipped
// unless filter.IncludeDeleted is set.
func (s *Store) Papers(ctx context.Context, filter PaperFilter) ([]Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers`
	if !filter.IncludeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY id`

	var out []Paper
	err := s.each(ctx, query, nil, func(sc scanner) error {
		p, err := scanPaper(sc)
		if err != nil {
			return err
		}
		out = append(out, *p)
		return nil
	})
	return out, err
}

// Paper returns one paper by id, soft-deleted or not.
func (s *Store) Paper(ctx context.Context, id int64) (*Paper, error) {
	var p *Paper
	err := s.each(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, []any{id},
		func(sc scanner) error {
			var err error
			p, err = scanPaper(sc)
			return err
		})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: paper %d", ErrNotFound, id)
	}
	return p, nil
}

func scanPaper(sc scanner) (*Paper, error) {
	var (
		p                Paper
		deleted          sql.NullString
		created, updated string
	)
	err := sc.Scan(
		&p.ID, &p.Title, &p.Abstract, &p.DOI, &p.PublicationYear, &p.PublicationDate,
		&p.JournalName, &p.ConferenceName, &p.Volume, &p.Issue, &p.Pages, &p.URL,
		&p.CitationCount, &p.ReadStatus, &p.Notes, &deleted, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	if deleted.Valid {
		t := parseTime(deleted.String)
		p.DeletedAt = &t
	}
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return &p, nil
}

const attachmentColumns = `a.id, a.paper_id, a.file_name, a.file_type, a.file_size, a.created_at, a.updated_at`

// Attachments returns the attachments of papers that are not soft-deleted.
func (s *Store) Attachments(ctx context.Context) ([]Attachment, error) {
	return s.attachments(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments a JOIN papers p ON p.id = a.paper_id
		WHERE p.deleted_at IS NULL
		ORDER BY a.id`)
}

// AttachmentsForPaper returns the attachments of one paper.
func (s *Store) AttachmentsForPaper(ctx context.Context, paperID int64) ([]Attachment, error) {
	return s.attachments(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments a WHERE a.paper_id = ?
		ORDER BY a.id`, paperID)
}

func (s *Store) attachments(ctx context.Context, query string, args ...any) ([]Attachment, error) {
	var out []Attachment
	err := s.each(ctx, query, args, func(sc scanner) error {
		var a Attachment
		var created, updated string
		if err := sc.Scan(&a.ID, &a.PaperID, &a.FileName, &a.FileType, &a.FileSize, &created, &updated); err != nil {
			return err
		}
		a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, a)
		return nil
	})
	return out, err
}

// PaperAuthors returns the paper-author links of live papers ordered by
// paper and author order.
func (s *Store) PaperAuthors(ctx context.Context) ([]PaperAuthor, error) {
	var out []PaperAuthor
	err := s.each(ctx, `
		SELECT pa.paper_id, pa.author_id, pa.author_order, pa.is_corresponding
		FROM paper_authors pa JOIN papers p ON p.id = pa.paper_id
		WHERE p.deleted_at IS NULL
		ORDER BY pa.paper_id, pa.author_order, pa.author_id`, nil,
		func(sc scanner) error {
			var pa PaperAuthor
			if err := sc.Scan(&pa.PaperID, &pa.AuthorID, &pa.AuthorOrder, &pa.IsCorresponding); err != nil {
				return err
			}
			out = append(out, pa)
			return nil
		})
	return out, err
}

// PaperLabels returns the paper-label links of live papers.
func (s *Store) PaperLabels(ctx context.Context) ([]PaperLabel, error) {
	var out []PaperLabel
	err := s.each(ctx, `
		SELECT pl.paper_id, pl.label_id
		FROM paper_labels pl JOIN papers p ON p.id = pl.paper_id
		WHERE p.deleted_at IS NULL
		ORDER BY pl.paper_id, pl.label_id`, nil,
		func(sc scanner) error {
			var pl PaperLabel
			if err := sc.Scan(&pl.PaperID, &pl.LabelID); err != nil {
				return err
			}
			out = append(out, pl)
			return nil
		})
	return out, err
}

// PaperCategories returns the paper-category links of live papers.
func (s *Store) PaperCategories(ctx context.Context) ([]PaperCategory, error) {
	var out []PaperCategory
	err := s.each(ctx, `
		SELECT pc.paper_id, pc.category_id
		FROM paper_categories pc JOIN papers p ON p.id = pc.paper_id
		WHERE p.deleted_at IS NULL
		ORDER BY pc.paper_id, pc.category_id`, nil,
		func(sc scanner) error {
			var pc PaperCategory
			if err := sc.Scan(&pc.PaperID, &pc.CategoryID); err != nil {
				return err
			}
			out = append(out, pc)
			return nil
		})
	return out, err
}

var countQueries = map[Kind]string{
	KindLabel:         `SELECT COUNT(*) FROM labels`,
	KindKeyword:       `SELECT COUNT(*) FROM keywords`,
	KindAuthor:        `SELECT COUNT(*) FROM authors`,
	KindCategory:      `SELECT COUNT(*) FROM categories`,
	KindPaper:         `SELECT COUNT(*) FROM papers WHERE deleted_at IS NULL`,
	KindAttachment:    `SELECT COUNT(*) FROM attachments a JOIN papers p ON p.id = a.paper_id WHERE p.deleted_at IS NULL`,
	KindPaperAuthor:   `SELECT COUNT(*) FROM paper_authors j JOIN papers p ON p.id = j.paper_id WHERE p.deleted_at IS NULL`,
	KindPaperLabel:    `SELECT COUNT(*) FROM paper_labels j JOIN papers p ON p.id = j.paper_id WHERE p.deleted_at IS NULL`,
	KindPaperCategory: `SELECT COUNT(*) FROM paper_categories j JOIN papers p ON p.id = j.paper_id WHERE p.deleted_at IS NULL`,
}

// Count returns the number of migratable rows of kind. Soft-deleted papers
// and rows that hang off them are not counted.
func (s *Store) Count(ctx context.Context, kind Kind) (int, error) {
	query, ok := countQueries[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("relational: count %s: %w", kind, err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// each runs query and calls fn for every row.
func (s *Store) each(ctx context.Context, query string, args []any, fn func(scanner) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("relational: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return fmt.Errorf("relational: scan: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("relational: iterate: %w", err)
	}
	return nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
