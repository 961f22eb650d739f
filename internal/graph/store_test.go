package graph_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xuan-brain/xuan-brain/internal/graph"
)

func newTestStore(t *testing.T) *graph.Store {
	t.Helper()
	s, err := graph.Open(filepath.Join(t.TempDir(), "data", "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateSelect(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doi := "10.1000/xyz"
	year := int32(2021)
	id := graph.NewRecordID(graph.TablePaper, 1)
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Create(ctx, id, graph.PaperRecord{
		Title:           "Attention",
		DOI:             &doi,
		PublicationYear: &year,
		CreatedAt:       now,
		UpdatedAt:       now,
	}))

	var got graph.PaperRecord
	require.NoError(t, s.Select(ctx, id, &got))
	require.Equal(t, id, got.ID)
	require.Equal(t, "Attention", got.Title)
	require.Equal(t, doi, *got.DOI)
	require.Equal(t, year, *got.PublicationYear)
	require.True(t, got.CreatedAt.Equal(now))
}

func TestCreate_DuplicateFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id := graph.NewRecordID(graph.TableLabel, 7)
	require.NoError(t, s.Create(ctx, id, graph.LabelRecord{Name: "todo"}))

	err := s.Create(ctx, id, graph.LabelRecord{Name: "again"})
	require.ErrorIs(t, err, graph.ErrRecordExists)

	var got graph.LabelRecord
	require.NoError(t, s.Select(ctx, id, &got))
	require.Equal(t, "todo", got.Name)
}

func TestCreate_RejectsNonObject(t *testing.T) {
	s := newTestStore(t)
	err := s.Create(context.Background(), graph.NewRecordID(graph.TableLabel, 1), []string{"x"})
	require.Error(t, err)
}

func TestSelect_NotFound(t *testing.T) {
	s := newTestStore(t)
	var out graph.PaperRecord
	err := s.Select(context.Background(), graph.NewRecordID(graph.TablePaper, 99), &out)
	require.ErrorIs(t, err, graph.ErrNotFound)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := graph.NewRecordID(graph.TableAuthor, 1)

	ok, err := s.Exists(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Create(ctx, id, graph.AuthorRecord{Name: "X"}))

	ok, err = s.Exists(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	child := graph.NewRecordID(graph.TableCategory, 2)
	parent := graph.NewRecordID(graph.TableCategory, 1)
	require.NoError(t, s.Create(ctx, parent, graph.CategoryRecord{Name: "root"}))
	require.NoError(t, s.Create(ctx, child, graph.CategoryRecord{Name: "leaf", SortOrder: 3}))

	require.NoError(t, s.Merge(ctx, child, map[string]any{
		"parent": parent.String(),
		"id":     "category:999",
	}))

	var got graph.CategoryRecord
	require.NoError(t, s.Select(ctx, child, &got))
	require.Equal(t, child, got.ID)
	require.NotNil(t, got.Parent)
	require.Equal(t, parent, *got.Parent)
	require.Equal(t, int32(3), got.SortOrder)
	require.Equal(t, "leaf", got.Name)
}

func TestMerge_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.Merge(context.Background(), graph.NewRecordID(graph.TableCategory, 5), map[string]any{"name": "x"})
	require.ErrorIs(t, err, graph.ErrNotFound)
}

func TestRelate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	paper := graph.NewRecordID(graph.TablePaper, 1)
	author := graph.NewRecordID(graph.TableAuthor, 1)
	require.NoError(t, s.Create(ctx, paper, graph.PaperRecord{Title: "A"}))
	require.NoError(t, s.Create(ctx, author, graph.AuthorRecord{Name: "X"}))

	edgeID, err := s.Relate(ctx, paper, graph.EdgePaperAuthor, author, graph.PaperAuthorEdge{AuthorOrder: 0})
	require.NoError(t, err)
	require.Equal(t, graph.EdgePaperAuthor, edgeID.Table)
	require.Len(t, edgeID.Key, 26)

	rows, err := s.Query(ctx,
		`SELECT in_tb || ':' || in_id AS src, out_tb || ':' || out_id AS dst, json_extract(content, '$.author_order') AS ord FROM edges WHERE tb = ?`,
		graph.EdgePaperAuthor)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "paper:1", rows[0]["src"])
	require.Equal(t, "author:1", rows[0]["dst"])
	require.EqualValues(t, 0, rows[0]["ord"])

	n, err := s.Count(ctx, graph.EdgePaperAuthor)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRelate_DanglingEndpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	paper := graph.NewRecordID(graph.TablePaper, 1)
	require.NoError(t, s.Create(ctx, paper, graph.PaperRecord{Title: "A"}))

	_, err := s.Relate(ctx, paper, graph.EdgePaperLabel, graph.NewRecordID(graph.TableLabel, 4), nil)
	require.ErrorIs(t, err, graph.ErrDanglingEdge)

	n, err := s.Count(ctx, graph.EdgePaperLabel)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRelate_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	paper := graph.NewRecordID(graph.TablePaper, 1)
	label := graph.NewRecordID(graph.TableLabel, 1)
	require.NoError(t, s.Create(ctx, paper, graph.PaperRecord{Title: "A"}))
	require.NoError(t, s.Create(ctx, label, graph.LabelRecord{Name: "x"}))

	_, err := s.Relate(ctx, paper, graph.EdgePaperLabel, label, nil)
	require.NoError(t, err)
	_, err = s.Relate(ctx, paper, graph.EdgePaperLabel, label, nil)
	require.ErrorIs(t, err, graph.ErrRecordExists)
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Create(ctx, graph.NewRecordID(graph.TableKeyword, i), graph.KeywordRecord{Word: "w"}))
	}
	require.NoError(t, s.Create(ctx, graph.NewRecordID(graph.TableLabel, 1), graph.LabelRecord{Name: "l"}))

	n, err := s.Count(ctx, graph.TableKeyword)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = s.Count(ctx, graph.TablePaper)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = s.Count(ctx, "Bad Table")
	require.ErrorIs(t, err, graph.ErrInvalidRecordID)
}

func TestDanglingEdges_Zero(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	paper := graph.NewRecordID(graph.TablePaper, 1)
	cat := graph.NewRecordID(graph.TableCategory, 1)
	require.NoError(t, s.Create(ctx, paper, graph.PaperRecord{Title: "A"}))
	require.NoError(t, s.Create(ctx, cat, graph.CategoryRecord{Name: "c"}))
	_, err := s.Relate(ctx, paper, graph.EdgePaperCategory, cat, nil)
	require.NoError(t, err)

	n, err := s.DanglingEdges(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s, err := graph.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Count(ctx, graph.TablePaper)
	require.ErrorIs(t, err, graph.ErrStoreClosed)
	err = s.Create(ctx, graph.NewRecordID(graph.TablePaper, 1), nil)
	require.ErrorIs(t, err, graph.ErrStoreClosed)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	s, err := graph.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, graph.NewRecordID(graph.TableAuthor, 1), graph.AuthorRecord{Name: "X"}))
	require.NoError(t, s.Close())

	s, err = graph.Open(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx, graph.TableAuthor)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
