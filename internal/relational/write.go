package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertLabel inserts l. A zero ID is assigned by the database.
func (s *Store) InsertLabel(ctx context.Context, l *Label) error {
	id, err := s.insert(ctx, `INSERT INTO labels (id, name, color, document_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		nullID(l.ID), l.Name, l.Color, l.DocumentCount, formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	if err != nil {
		return fmt.Errorf("relational: insert label %q: %w", l.Name, err)
	}
	l.ID = id
	return nil
}

// InsertKeyword inserts k. A zero ID is assigned by the database.
func (s *Store) InsertKeyword(ctx context.Context, k *Keyword) error {
	id, err := s.insert(ctx, `INSERT INTO keywords (id, word, created_at) VALUES (?, ?, ?)`,
		nullID(k.ID), k.Word, formatTime(k.CreatedAt))
	if err != nil {
		return fmt.Errorf("relational: insert keyword %q: %w", k.Word, err)
	}
	k.ID = id
	return nil
}

// InsertAuthor inserts a. A zero ID is assigned by the database.
func (s *Store) InsertAuthor(ctx context.Context, a *Author) error {
	id, err := s.insert(ctx, `INSERT INTO authors (id, name, affiliation, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		nullID(a.ID), a.Name, a.Affiliation, a.Email, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("relational: insert author %q: %w", a.Name, err)
	}
	a.ID = id
	return nil
}

// InsertCategory inserts c. A zero ID is assigned by the database.
func (s *Store) InsertCategory(ctx context.Context, c *Category) error {
	id, err := s.insert(ctx, `INSERT INTO categories (id, name, parent_id, sort_order, document_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullID(c.ID), c.Name, c.ParentID, c.SortOrder, c.DocumentCount, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("relational: insert category %q: %w", c.Name, err)
	}
	c.ID = id
	return nil
}

// InsertPaper inserts p. A zero ID is assigned by the database.
func (s *Store) InsertPaper(ctx context.Context, p *Paper) error {
	readStatus := p.ReadStatus
	if readStatus == "" {
		readStatus = "unread"
	}
	var deleted *string
	if p.DeletedAt != nil {
		v := formatTime(*p.DeletedAt)
		deleted = &v
	}

	id, err := s.insert(ctx, `
		INSERT INTO papers (`+paperColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(p.ID), p.Title, p.Abstract, p.DOI, p.PublicationYear, p.PublicationDate, p.JournalName,
		p.ConferenceName, p.Volume, p.Issue, p.Pages, p.URL, p.CitationCount, readStatus, p.Notes,
		deleted, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("relational: insert paper %q: %w", p.Title, err)
	}
	p.ID = id
	p.ReadStatus = readStatus
	return nil
}

// SoftDeletePaper marks a paper deleted without removing it.
func (s *Store) SoftDeletePaper(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `UPDATE papers SET deleted_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("relational: soft delete paper %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: paper %d", ErrNotFound, id)
	}
	return nil
}

// InsertAttachment inserts a. A zero ID is assigned by the database.
func (s *Store) InsertAttachment(ctx context.Context, a *Attachment) error {
	id, err := s.insert(ctx, `INSERT INTO attachments (id, paper_id, file_name, file_type, file_size, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullID(a.ID), a.PaperID, a.FileName, a.FileType, a.FileSize, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("relational: insert attachment for paper %d: %w", a.PaperID, err)
	}
	a.ID = id
	return nil
}

// LinkPaperAuthor inserts a paper_authors row.
func (s *Store) LinkPaperAuthor(ctx context.Context, pa PaperAuthor) error {
	if _, err := s.insert(ctx, `INSERT INTO paper_authors (paper_id, author_id, author_order, is_corresponding) VALUES (?, ?, ?, ?)`,
		pa.PaperID, pa.AuthorID, pa.AuthorOrder, pa.IsCorresponding); err != nil {
		return fmt.Errorf("relational: link paper %d to author %d: %w", pa.PaperID, pa.AuthorID, err)
	}
	return nil
}

// LinkPaperLabel inserts a paper_labels row.
func (s *Store) LinkPaperLabel(ctx context.Context, paperID, labelID int64) error {
	if _, err := s.insert(ctx, `INSERT INTO paper_labels (paper_id, label_id) VALUES (?, ?)`, paperID, labelID); err != nil {
		return fmt.Errorf("relational: link paper %d to label %d: %w", paperID, labelID, err)
	}
	return nil
}

// LinkPaperCategory inserts a paper_categories row.
func (s *Store) LinkPaperCategory(ctx context.Context, paperID, categoryID int64) error {
	if _, err := s.insert(ctx, `INSERT INTO paper_categories (paper_id, category_id) VALUES (?, ?)`, paperID, categoryID); err != nil {
		return fmt.Errorf("relational: link paper %d to category %d: %w", paperID, categoryID, err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// nullID lets the database assign an id when id is zero.
func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
