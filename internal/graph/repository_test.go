package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xuan-brain/xuan-brain/internal/graph"
)

func seedLibrary(t *testing.T, s *graph.Store) {
	t.Helper()
	ctx := context.Background()

	create := func(id graph.RecordID, content any) {
		require.NoError(t, s.Create(ctx, id, content))
	}
	relate := func(in graph.RecordID, edge string, out graph.RecordID, content any) {
		_, err := s.Relate(ctx, in, edge, out, content)
		require.NoError(t, err)
	}

	paper := graph.NewRecordID(graph.TablePaper, 1)
	create(paper, graph.PaperRecord{Title: "A"})
	create(graph.NewRecordID(graph.TablePaper, 2), graph.PaperRecord{Title: "B"})

	a1 := graph.NewRecordID(graph.TableAuthor, 1)
	a2 := graph.NewRecordID(graph.TableAuthor, 2)
	create(a1, graph.AuthorRecord{Name: "X"})
	create(a2, graph.AuthorRecord{Name: "Y"})
	relate(paper, graph.EdgePaperAuthor, a2, graph.PaperAuthorEdge{AuthorOrder: 0, IsCorresponding: true})
	relate(paper, graph.EdgePaperAuthor, a1, graph.PaperAuthorEdge{AuthorOrder: 1})

	label := graph.NewRecordID(graph.TableLabel, 1)
	create(label, graph.LabelRecord{Name: "to-read", Color: "#ff0000"})
	relate(paper, graph.EdgePaperLabel, label, nil)

	root := graph.NewRecordID(graph.TableCategory, 1)
	create(root, graph.CategoryRecord{Name: "ML"})
	create(graph.NewRecordID(graph.TableCategory, 2), graph.CategoryRecord{Name: "NLP", Parent: &root, SortOrder: 2})
	create(graph.NewRecordID(graph.TableCategory, 3), graph.CategoryRecord{Name: "CV", Parent: &root, SortOrder: 1})
	relate(paper, graph.EdgePaperCategory, graph.NewRecordID(graph.TableCategory, 2), nil)

	name := "a.pdf"
	create(graph.NewRecordID(graph.TableAttachment, 1), graph.AttachmentRecord{Paper: paper, FileName: &name, FileSize: 10})
}

func TestPaperRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedLibrary(t, s)
	repo := graph.NewPaperRepository(s)

	p, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "A", p.Title)

	_, err = repo.Get(ctx, 42)
	require.ErrorIs(t, err, graph.ErrNotFound)

	papers, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	require.Equal(t, "B", papers[1].Title)

	authors, err := repo.Authors(ctx, 1)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	require.Equal(t, "Y", authors[0].Author.Name)
	require.True(t, authors[0].IsCorresponding)
	require.Equal(t, "X", authors[1].Author.Name)
	require.Equal(t, int32(1), authors[1].AuthorOrder)

	labels, err := repo.Labels(ctx, 1)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	require.Equal(t, "to-read", labels[0].Name)

	cats, err := repo.Categories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Equal(t, "NLP", cats[0].Name)

	atts, err := repo.Attachments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	require.Equal(t, "a.pdf", *atts[0].FileName)

	none, err := repo.Labels(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedLibrary(t, s)
	repo := graph.NewCategoryRepository(s)

	roots, err := repo.Roots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Equal(t, "ML", roots[0].Name)

	children, err := repo.Children(ctx, 1)
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "CV", children[0].Name)
	require.Equal(t, "NLP", children[1].Name)

	c, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "category:1", c.Parent.String())
}
