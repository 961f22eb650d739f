package relational_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xuan-brain/xuan-brain/internal/relational"
	"github.com/xuan-brain/xuan-brain/internal/relational/migrations"
)

func newTestStore(t *testing.T) *relational.Store {
	t.Helper()
	s, err := relational.Open(filepath.Join(t.TempDir(), "legacy.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestPapers_SoftDeleteFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := &relational.Paper{Title: "A", DOI: ptr("10.1/a"), PublicationYear: ptr(int64(2020))}
	b := &relational.Paper{Title: "B"}
	require.NoError(t, s.InsertPaper(ctx, a))
	require.NoError(t, s.InsertPaper(ctx, b))
	require.NoError(t, s.SoftDeletePaper(ctx, b.ID, time.Now()))

	live, err := s.Papers(ctx, relational.PaperFilter{})
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, "A", live[0].Title)
	require.Equal(t, "10.1/a", *live[0].DOI)
	require.Equal(t, int64(2020), *live[0].PublicationYear)
	require.Nil(t, live[0].Abstract)
	require.Equal(t, "unread", live[0].ReadStatus)

	all, err := s.Papers(ctx, relational.PaperFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[1].DeletedAt)

	n, err := s.Count(ctx, relational.KindPaper)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPaper_ByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &relational.Paper{ID: 7, Title: "Seven"}
	require.NoError(t, s.InsertPaper(ctx, p))
	require.Equal(t, int64(7), p.ID)

	got, err := s.Paper(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "Seven", got.Title)

	_, err = s.Paper(ctx, 8)
	require.ErrorIs(t, err, relational.ErrNotFound)
}

func TestCategories_NullableColumns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	root := &relational.Category{Name: "root"}
	require.NoError(t, s.InsertCategory(ctx, root))
	child := &relational.Category{Name: "child", ParentID: &root.ID, SortOrder: ptr(int64(4)), DocumentCount: ptr(int64(9))}
	require.NoError(t, s.InsertCategory(ctx, child))

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	require.Nil(t, cats[0].ParentID)
	require.Nil(t, cats[0].SortOrder)
	require.Equal(t, root.ID, *cats[1].ParentID)
	require.Equal(t, int64(4), *cats[1].SortOrder)
	require.Equal(t, int64(9), *cats[1].DocumentCount)
}

func TestJoins_SkipSoftDeletedPapers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	live := &relational.Paper{Title: "live"}
	gone := &relational.Paper{Title: "gone"}
	require.NoError(t, s.InsertPaper(ctx, live))
	require.NoError(t, s.InsertPaper(ctx, gone))

	author := &relational.Author{Name: "X"}
	require.NoError(t, s.InsertAuthor(ctx, author))
	label := &relational.Label{Name: "l"}
	require.NoError(t, s.InsertLabel(ctx, label))
	cat := &relational.Category{Name: "c"}
	require.NoError(t, s.InsertCategory(ctx, cat))

	for _, p := range []*relational.Paper{live, gone} {
		require.NoError(t, s.LinkPaperAuthor(ctx, relational.PaperAuthor{PaperID: p.ID, AuthorID: author.ID, AuthorOrder: ptr(int64(0))}))
		require.NoError(t, s.LinkPaperLabel(ctx, p.ID, label.ID))
		require.NoError(t, s.LinkPaperCategory(ctx, p.ID, cat.ID))
		require.NoError(t, s.InsertAttachment(ctx, &relational.Attachment{PaperID: p.ID, FileName: ptr("f.pdf")}))
	}
	require.NoError(t, s.SoftDeletePaper(ctx, gone.ID, time.Now()))

	pas, err := s.PaperAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, pas, 1)
	require.Equal(t, live.ID, pas[0].PaperID)
	require.Nil(t, pas[0].IsCorresponding)

	pls, err := s.PaperLabels(ctx)
	require.NoError(t, err)
	require.Len(t, pls, 1)

	pcs, err := s.PaperCategories(ctx)
	require.NoError(t, err)
	require.Len(t, pcs, 1)

	atts, err := s.Attachments(ctx)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	require.Equal(t, live.ID, atts[0].PaperID)

	byPaper, err := s.AttachmentsForPaper(ctx, gone.ID)
	require.NoError(t, err)
	require.Len(t, byPaper, 1)

	for _, kind := range []relational.Kind{relational.KindPaperAuthor, relational.KindPaperLabel, relational.KindPaperCategory, relational.KindAttachment} {
		n, err := s.Count(ctx, kind)
		require.NoError(t, err)
		require.Equal(t, 1, n, "count %s", kind)
	}
}

func TestPaperAuthors_CorrespondingFlag(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &relational.Paper{Title: "p"}
	require.NoError(t, s.InsertPaper(ctx, p))
	a := &relational.Author{Name: "a"}
	require.NoError(t, s.InsertAuthor(ctx, a))
	require.NoError(t, s.LinkPaperAuthor(ctx, relational.PaperAuthor{PaperID: p.ID, AuthorID: a.ID, IsCorresponding: ptr(true)}))

	pas, err := s.PaperAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, pas, 1)
	require.NotNil(t, pas[0].IsCorresponding)
	require.True(t, *pas[0].IsCorresponding)
	require.Nil(t, pas[0].AuthorOrder)
}

func TestCount_UnknownKind(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Count(context.Background(), relational.Kind("widgets"))
	require.ErrorIs(t, err, relational.ErrUnknownKind)
}

func TestClosedStore(t *testing.T) {
	s, err := relational.Open(filepath.Join(t.TempDir(), "legacy.sqlite"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Labels(context.Background())
	require.ErrorIs(t, err, relational.ErrStoreClosed)
}

// createForeignLibrary builds the library schema with plain SQL, the way a
// database created by another tool looks: no goose version table.
func createForeignLibrary(t *testing.T, path string, skip relational.Kind) {
	t.Helper()
	raw, err := migrations.FS.ReadFile("00001_library.sql")
	require.NoError(t, err)
	up, _, _ := strings.Cut(string(raw), "-- +goose Down")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(up)
	require.NoError(t, err)
	if skip != "" {
		_, err = db.Exec("DROP TABLE " + string(skip))
		require.NoError(t, err)
	}
	_, err = db.Exec(`INSERT INTO labels (id, name, color, created_at, updated_at)
		VALUES (7, 'to-read', '#fff', '2024-01-02T03:04:05Z', '2024-01-02T03:04:05Z')`)
	require.NoError(t, err)
}

func TestOpenReadOnly_ForeignSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.sqlite")
	createForeignLibrary(t, path, "")

	s, err := relational.OpenReadOnly(path)
	require.NoError(t, err)

	labels, err := s.Labels(ctx)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	require.Equal(t, int64(7), labels[0].ID)
	require.Equal(t, "to-read", labels[0].Name)

	require.Error(t, s.InsertLabel(ctx, &relational.Label{Name: "new"}))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'goose_db_version'`).Scan(&n))
	require.Zero(t, n, "read-only open wrote a goose version table")
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM labels`).Scan(&n))
	require.Equal(t, 1, n)

	_, err = os.Stat(path + "-wal")
	require.True(t, os.IsNotExist(err), "read-only open left a WAL file")
}

func TestOpenReadOnly_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.sqlite")
	createForeignLibrary(t, path, relational.KindPaperCategory)

	_, err := relational.OpenReadOnly(path)
	require.ErrorIs(t, err, relational.ErrSchemaMissing)
}

func TestOpenReadOnly_MissingFile(t *testing.T) {
	_, err := relational.OpenReadOnly(filepath.Join(t.TempDir(), "nope.sqlite"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenReadOnly_ReadsStoreCreatedByOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.sqlite")
	w, err := relational.Open(path)
	require.NoError(t, err)
	require.NoError(t, w.InsertAuthor(ctx, &relational.Author{Name: "Ada"}))
	require.NoError(t, w.Close())

	s, err := relational.OpenReadOnly(path)
	require.NoError(t, err)
	defer s.Close()

	authors, err := s.Authors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 1)
}
