package graph

import (
	"context"
	"encoding/json"
	"fmt"
)

// Querier is the store handle repositories read through.
type Querier interface {
	Query(ctx context.Context, statement string, args ...any) ([]Row, error)
}

// PaperRepository reads papers and their related records.
type PaperRepository struct {
	q Querier
}

// NewPaperRepository returns a repository over q.
func NewPaperRepository(q Querier) *PaperRepository {
	return &PaperRepository{q: q}
}

// Get returns the paper with the given relational id.
func (r *PaperRepository) Get(ctx context.Context, id int64) (*PaperRecord, error) {
	rid := NewRecordID(TablePaper, id)
	rows, err := r.q.Query(ctx,
		`SELECT content FROM records WHERE tb = ? AND id = ?`, rid.Table, rid.Key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rid)
	}
	var p PaperRecord
	if err := decodeContent(rows[0], &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every paper ordered by key.
func (r *PaperRepository) List(ctx context.Context) ([]PaperRecord, error) {
	rows, err := r.q.Query(ctx,
		`SELECT content FROM records WHERE tb = ? ORDER BY CAST(id AS INTEGER), id`, TablePaper)
	if err != nil {
		return nil, err
	}
	return decodeAll[PaperRecord](rows)
}

// AuthorEntry is an author together with its position on a paper.
type AuthorEntry struct {
	Author          AuthorRecord
	AuthorOrder     int32
	IsCorresponding bool
}

// Authors returns the authors of a paper in author order.
func (r *PaperRepository) Authors(ctx context.Context, paperID int64) ([]AuthorEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT r.content AS content, e.content AS edge
		FROM edges e
		JOIN records r ON r.tb = e.out_tb AND r.id = e.out_id
		WHERE e.tb = ? AND e.in_tb = ? AND e.in_id = ?
		ORDER BY json_extract(e.content, '$.author_order'), r.id
	`, EdgePaperAuthor, TablePaper, NewRecordID(TablePaper, paperID).Key)
	if err != nil {
		return nil, err
	}

	entries := make([]AuthorEntry, 0, len(rows))
	for _, row := range rows {
		var entry AuthorEntry
		if err := decodeContent(row, &entry.Author); err != nil {
			return nil, err
		}
		var edge PaperAuthorEdge
		if err := decodeColumn(row, "edge", &edge); err != nil {
			return nil, err
		}
		entry.AuthorOrder = edge.AuthorOrder
		entry.IsCorresponding = edge.IsCorresponding
		entries = append(entries, entry)
	}
	return entries, nil
}

// Labels returns the labels attached to a paper.
func (r *PaperRepository) Labels(ctx context.Context, paperID int64) ([]LabelRecord, error) {
	rows, err := r.outgoing(ctx, EdgePaperLabel, paperID)
	if err != nil {
		return nil, err
	}
	return decodeAll[LabelRecord](rows)
}

// Categories returns the categories a paper is filed under.
func (r *PaperRepository) Categories(ctx context.Context, paperID int64) ([]CategoryRecord, error) {
	rows, err := r.outgoing(ctx, EdgePaperCategory, paperID)
	if err != nil {
		return nil, err
	}
	return decodeAll[CategoryRecord](rows)
}

// Attachments returns the attachments owned by a paper.
func (r *PaperRepository) Attachments(ctx context.Context, paperID int64) ([]AttachmentRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT content FROM records
		WHERE tb = ? AND json_extract(content, '$.paper') = ?
		ORDER BY CAST(id AS INTEGER), id
	`, TableAttachment, NewRecordID(TablePaper, paperID).String())
	if err != nil {
		return nil, err
	}
	return decodeAll[AttachmentRecord](rows)
}

func (r *PaperRepository) outgoing(ctx context.Context, edge string, paperID int64) ([]Row, error) {
	return r.q.Query(ctx, `
		SELECT r.content AS content
		FROM edges e
		JOIN records r ON r.tb = e.out_tb AND r.id = e.out_id
		WHERE e.tb = ? AND e.in_tb = ? AND e.in_id = ?
		ORDER BY CAST(r.id AS INTEGER), r.id
	`, edge, TablePaper, NewRecordID(TablePaper, paperID).Key)
}

// CategoryRepository reads the category tree.
type CategoryRepository struct {
	q Querier
}

// NewCategoryRepository returns a repository over q.
func NewCategoryRepository(q Querier) *CategoryRepository {
	return &CategoryRepository{q: q}
}

// Get returns the category with the given relational id.
func (r *CategoryRepository) Get(ctx context.Context, id int64) (*CategoryRecord, error) {
	rid := NewRecordID(TableCategory, id)
	rows, err := r.q.Query(ctx,
		`SELECT content FROM records WHERE tb = ? AND id = ?`, rid.Table, rid.Key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rid)
	}
	var c CategoryRecord
	if err := decodeContent(rows[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Children returns the direct children of a category in sort order.
func (r *CategoryRepository) Children(ctx context.Context, id int64) ([]CategoryRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT content FROM records
		WHERE tb = ? AND json_extract(content, '$.parent') = ?
		ORDER BY json_extract(content, '$.sort_order'), CAST(id AS INTEGER)
	`, TableCategory, NewRecordID(TableCategory, id).String())
	if err != nil {
		return nil, err
	}
	return decodeAll[CategoryRecord](rows)
}

// Roots returns the categories without a parent in sort order.
func (r *CategoryRepository) Roots(ctx context.Context) ([]CategoryRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT content FROM records
		WHERE tb = ? AND json_extract(content, '$.parent') IS NULL
		ORDER BY json_extract(content, '$.sort_order'), CAST(id AS INTEGER)
	`, TableCategory)
	if err != nil {
		return nil, err
	}
	return decodeAll[CategoryRecord](rows)
}

func decodeContent(row Row, out any) error {
	return decodeColumn(row, "content", out)
}

func decodeColumn(row Row, col string, out any) error {
	s, ok := row[col].(string)
	if !ok {
		return fmt.Errorf("graph: column %q is %T, want JSON text", col, row[col])
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("graph: decode %s: %w", col, err)
	}
	return nil
}

func decodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := decodeContent(row, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
