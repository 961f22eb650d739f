package xuanbrain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/xuan-brain/xuan-brain/internal/graph"
	"github.com/xuan-brain/xuan-brain/internal/relational"
)

// RecordSource is the relational store records are migrated from.
// Joins and attachments of soft-deleted papers are expected to be filtered
// out by the source.
type RecordSource interface {
	Labels(ctx context.Context) ([]relational.Label, error)
	Keywords(ctx context.Context) ([]relational.Keyword, error)
	Authors(ctx context.Context) ([]relational.Author, error)
	Categories(ctx context.Context) ([]relational.Category, error)
	Papers(ctx context.Context, filter relational.PaperFilter) ([]relational.Paper, error)
	Attachments(ctx context.Context) ([]relational.Attachment, error)
	PaperAuthors(ctx context.Context) ([]relational.PaperAuthor, error)
	PaperLabels(ctx context.Context) ([]relational.PaperLabel, error)
	PaperCategories(ctx context.Context) ([]relational.PaperCategory, error)
	Count(ctx context.Context, kind relational.Kind) (int, error)
}

// GraphStore is the graph store records are migrated into.
type GraphStore interface {
	Create(ctx context.Context, id graph.RecordID, content any) error
	Exists(ctx context.Context, id graph.RecordID) (bool, error)
	Merge(ctx context.Context, id graph.RecordID, patch map[string]any) error
	Relate(ctx context.Context, in graph.RecordID, edge string, out graph.RecordID, content any) (graph.RecordID, error)
	Count(ctx context.Context, table string) (int, error)
}

// RecordMigrator copies relational records into the graph store. Relational
// row N of kind T becomes graph record T:N.
type RecordMigrator struct {
	source RecordSource
	dest   GraphStore
	logger *slog.Logger
	now    func() time.Time
}

// RecordMigratorOption configures a RecordMigrator.
type RecordMigratorOption func(*RecordMigrator)

// WithMigratorLogger sets the migrator logger.
func WithMigratorLogger(l *slog.Logger) RecordMigratorOption {
	return func(m *RecordMigrator) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock sets the clock used to stamp created_at and updated_at.
func WithClock(now func() time.Time) RecordMigratorOption {
	return func(m *RecordMigrator) {
		if now != nil {
			m.now = now
		}
	}
}

// NewRecordMigrator returns a migrator from source to dest.
func NewRecordMigrator(source RecordSource, dest GraphStore, opts ...RecordMigratorOption) *RecordMigrator {
	m := &RecordMigrator{
		source: source,
		dest:   dest,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// migrationStep is one kind of record or relation.
type migrationStep struct {
	name  string
	table string
	run   func(ctx context.Context, now time.Time) (int, error)
	count *int
}

// steps returns the migration steps in dependency order, bound to report.
func (m *RecordMigrator) steps(report *MigrationReport) []migrationStep {
	return []migrationStep{
		{"labels", graph.TableLabel, m.migrateLabels, &report.LabelsMigrated},
		{"keywords", graph.TableKeyword, m.migrateKeywords, &report.KeywordsMigrated},
		{"authors", graph.TableAuthor, m.migrateAuthors, &report.AuthorsMigrated},
		{"categories", graph.TableCategory, m.migrateCategories, &report.CategoriesMigrated},
		{"papers", graph.TablePaper, m.migratePapers, &report.PapersMigrated},
		{"attachments", graph.TableAttachment, m.migrateAttachments, &report.AttachmentsMigrated},
		{"paper_author", graph.EdgePaperAuthor, m.migratePaperAuthors, &report.PaperAuthorRelations},
		{"paper_label", graph.EdgePaperLabel, m.migratePaperLabels, &report.PaperLabelRelations},
		{"paper_category", graph.EdgePaperCategory, m.migratePaperCategories, &report.PaperCategoryRelations},
	}
}

// MigrateAll runs every step in order. A failed step reports zero and adds
// one entry to Errors; later steps still run. Re-running over existing
// records fails the affected steps.
func (m *RecordMigrator) MigrateAll(ctx context.Context) *MigrationReport {
	start := time.Now()
	now := m.now().UTC()
	report := NewMigrationReport()

	for _, step := range m.steps(report) {
		n, err := m.runStep(ctx, step, now)
		if err != nil {
			*step.count = 0
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", step.name, err))
			m.logger.Error("record migration step failed", "kind", step.name, "error", err)
			continue
		}
		*step.count = n
		m.logger.Info("record migration step completed", "kind", step.name, "count", n)
	}

	report.DurationMS = time.Since(start).Milliseconds()
	m.logger.Info("record migration finished",
		"total", report.Total(), "failed_kinds", len(report.Errors), "duration_ms", report.DurationMS)
	return report
}

func (m *RecordMigrator) runStep(ctx context.Context, step migrationStep, now time.Time) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()
	return step.run(ctx, now)
}

// VerifyCounts reads the number of records and relations of every kind
// from the graph store.
func (m *RecordMigrator) VerifyCounts(ctx context.Context) *MigrationReport {
	start := time.Now()
	report := NewMigrationReport()

	for _, step := range m.steps(report) {
		n, err := m.dest.Count(ctx, step.table)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", step.name, err))
			continue
		}
		*step.count = n
	}

	report.DurationMS = time.Since(start).Milliseconds()
	return report
}

// NeedsMigration reports whether the source holds more papers, authors or
// categories than the graph store.
func (m *RecordMigrator) NeedsMigration(ctx context.Context) (bool, error) {
	checks := []struct {
		kind  relational.Kind
		table string
	}{
		{relational.KindPaper, graph.TablePaper},
		{relational.KindAuthor, graph.TableAuthor},
		{relational.KindCategory, graph.TableCategory},
	}
	for _, c := range checks {
		src, err := m.source.Count(ctx, c.kind)
		if err != nil {
			return false, fmt.Errorf("count source %s: %w", c.kind, err)
		}
		dst, err := m.dest.Count(ctx, c.table)
		if err != nil {
			return false, fmt.Errorf("count destination %s: %w", c.table, err)
		}
		if src > dst {
			return true, nil
		}
	}
	return false, nil
}

func (m *RecordMigrator) migrateLabels(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.Labels(ctx)
	if err != nil {
		return 0, err
	}
	for _, l := range rows {
		id := graph.NewRecordID(graph.TableLabel, l.ID)
		err := m.dest.Create(ctx, id, graph.LabelRecord{
			Name:          l.Name,
			Color:         l.Color,
			DocumentCount: toInt32(l.DocumentCount),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", id, err)
		}
	}
	return len(rows), nil
}

func (m *RecordMigrator) migrateKeywords(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.Keywords(ctx)
	if err != nil {
		return 0, err
	}
	for _, k := range rows {
		id := graph.NewRecordID(graph.TableKeyword, k.ID)
		if err := m.dest.Create(ctx, id, graph.KeywordRecord{Word: k.Word, CreatedAt: now}); err != nil {
			return 0, fmt.Errorf("create %s: %w", id, err)
		}
	}
	return len(rows), nil
}

func (m *RecordMigrator) migrateAuthors(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.Authors(ctx)
	if err != nil {
		return 0, err
	}
	for _, a := range rows {
		id := graph.NewRecordID(graph.TableAuthor, a.ID)
		err := m.dest.Create(ctx, id, graph.AuthorRecord{
			Name:        a.Name,
			Affiliation: a.Affiliation,
			Email:       a.Email,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", id, err)
		}
	}
	return len(rows), nil
}

// migrateCategories creates every category without a parent, then links
// parents once all nodes exist.
func (m *RecordMigrator) migrateCategories(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.Categories(ctx)
	if err != nil {
		return 0, err
	}

	for _, c := range rows {
		id := graph.NewRecordID(graph.TableCategory, c.ID)
		err := m.dest.Create(ctx, id, graph.CategoryRecord{
			Name:          c.Name,
			SortOrder:     toInt32(c.SortOrder),
			DocumentCount: toInt32(c.DocumentCount),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", id, err)
		}
	}

	for _, c := range rows {
		if c.ParentID == nil {
			continue
		}
		id := graph.NewRecordID(graph.TableCategory, c.ID)
		parent := graph.NewRecordID(graph.TableCategory, *c.ParentID)

		ok, err := m.dest.Exists(ctx, parent)
		if err != nil {
			return 0, fmt.Errorf("lookup parent %s of %s: %w", parent, id, err)
		}
		if !ok {
			m.logger.Warn("category parent missing, leaving category at top level",
				"kind", "categories", "id", id.String(), "parent", parent.String())
			continue
		}
		if err := m.dest.Merge(ctx, id, map[string]any{"parent": parent.String()}); err != nil {
			return 0, fmt.Errorf("set parent of %s: %w", id, err)
		}
	}
	return len(rows), nil
}

func (m *RecordMigrator) migratePapers(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.Papers(ctx, relational.PaperFilter{})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range rows {
		if p.DeletedAt != nil {
			continue
		}
		id := graph.NewRecordID(graph.TablePaper, p.ID)
		err := m.dest.Create(ctx, id, graph.PaperRecord{
			Title:           p.Title,
			Abstract:        p.Abstract,
			DOI:             p.DOI,
			PublicationYear: toInt32Ptr(p.PublicationYear),
			PublicationDate: p.PublicationDate,
			JournalName:     p.JournalName,
			ConferenceName:  p.ConferenceName,
			Volume:          p.Volume,
			Issue:           p.Issue,
			Pages:           p.Pages,
			URL:             p.URL,
			CitationCount:   toInt32(p.CitationCount),
			ReadStatus:      p.ReadStatus,
			Notes:           p.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", id, err)
		}
		n++
	}
	return n, nil
}

func (m *RecordMigrator) migrateAttachments(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.Attachments(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range rows {
		id := graph.NewRecordID(graph.TableAttachment, a.ID)
		paper := graph.NewRecordID(graph.TablePaper, a.PaperID)

		ok, err := m.dest.Exists(ctx, paper)
		if err != nil {
			return 0, fmt.Errorf("lookup %s for %s: %w", paper, id, err)
		}
		if !ok {
			m.logger.Warn("attachment paper missing, skipping",
				"kind", "attachments", "id", id.String(), "paper", paper.String())
			continue
		}

		err = m.dest.Create(ctx, id, graph.AttachmentRecord{
			Paper:     paper,
			FileName:  a.FileName,
			FileType:  a.FileType,
			FileSize:  derefInt64(a.FileSize),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", id, err)
		}
		n++
	}
	return n, nil
}

func (m *RecordMigrator) migratePaperAuthors(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.PaperAuthors(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, pa := range rows {
		ok, err := m.relate(ctx,
			graph.NewRecordID(graph.TablePaper, pa.PaperID),
			graph.EdgePaperAuthor,
			graph.NewRecordID(graph.TableAuthor, pa.AuthorID),
			graph.PaperAuthorEdge{
				AuthorOrder:     toInt32(pa.AuthorOrder),
				IsCorresponding: pa.IsCorresponding != nil && *pa.IsCorresponding,
				CreatedAt:       now,
			})
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (m *RecordMigrator) migratePaperLabels(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.PaperLabels(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, pl := range rows {
		ok, err := m.relate(ctx,
			graph.NewRecordID(graph.TablePaper, pl.PaperID),
			graph.EdgePaperLabel,
			graph.NewRecordID(graph.TableLabel, pl.LabelID),
			graph.LinkEdge{CreatedAt: now})
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (m *RecordMigrator) migratePaperCategories(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.source.PaperCategories(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, pc := range rows {
		ok, err := m.relate(ctx,
			graph.NewRecordID(graph.TablePaper, pc.PaperID),
			graph.EdgePaperCategory,
			graph.NewRecordID(graph.TableCategory, pc.CategoryID),
			graph.LinkEdge{CreatedAt: now})
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// relate creates one edge. An edge whose endpoint was not migrated is
// skipped, since the step that owns the endpoint already reported it.
func (m *RecordMigrator) relate(ctx context.Context, in graph.RecordID, edge string, out graph.RecordID, content any) (bool, error) {
	_, err := m.dest.Relate(ctx, in, edge, out, content)
	if errors.Is(err, graph.ErrDanglingEdge) {
		m.logger.Warn("edge endpoint missing, skipping",
			"kind", edge, "in", in.String(), "out", out.String())
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("relate %s -> %s: %w", in, out, err)
	}
	return true, nil
}

// toInt32 narrows a nullable integer column. Null becomes zero and values
// outside the int32 range saturate.
func toInt32(v *int64) int32 {
	if v == nil {
		return 0
	}
	switch {
	case *v > math.MaxInt32:
		return math.MaxInt32
	case *v < math.MinInt32:
		return math.MinInt32
	}
	return int32(*v)
}

func toInt32Ptr(v *int64) *int32 {
	if v == nil {
		return nil
	}
	n := toInt32(v)
	return &n
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
