package xuanbrain

// MigrationPhase is the current step of a folder migration.
type MigrationPhase string

const (
	PhasePreparing       MigrationPhase = "Preparing"
	PhaseCopyingDatabase MigrationPhase = "CopyingDatabase"
	PhaseCopyingConfig   MigrationPhase = "CopyingConfig"
	PhaseCopyingFiles    MigrationPhase = "CopyingFiles"
	PhaseCopyingCache    MigrationPhase = "CopyingCache"
	PhaseCopyingLogs     MigrationPhase = "CopyingLogs"
	PhaseVerifying       MigrationPhase = "Verifying"
	PhaseCompleted       MigrationPhase = "Completed"
	PhaseRollingBack     MigrationPhase = "RollingBack"
)

// MigrationPhases returns the forward phases in order. RollingBack is not
// part of the forward sequence.
func MigrationPhases() []MigrationPhase {
	return []MigrationPhase{
		PhasePreparing,
		PhaseCopyingDatabase,
		PhaseCopyingConfig,
		PhaseCopyingFiles,
		PhaseCopyingCache,
		PhaseCopyingLogs,
		PhaseVerifying,
		PhaseCompleted,
	}
}

// IsTerminal reports whether no further phase follows p.
func (p MigrationPhase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseRollingBack
}

// MigrationStatus is one progress update of a folder migration.
type MigrationStatus struct {
	Phase          MigrationPhase `json:"phase"`
	CurrentFile    *string        `json:"current_file"`
	TotalFiles     int            `json:"total_files"`
	ProcessedFiles int            `json:"processed_files"`
	Error          *string        `json:"error"`
}

// Percent returns processed over total as a percentage in [0, 100].
func (s MigrationStatus) Percent() float64 {
	if s.TotalFiles <= 0 {
		return 0
	}
	p := float64(s.ProcessedFiles) / float64(s.TotalFiles) * 100
	if p > 100 {
		return 100
	}
	return p
}

// MigrationReport summarises a record migration or a count verification.
// Errors holds one entry per failed kind.
type MigrationReport struct {
	PapersMigrated         int      `json:"papers_migrated"`
	AuthorsMigrated        int      `json:"authors_migrated"`
	CategoriesMigrated     int      `json:"categories_migrated"`
	LabelsMigrated         int      `json:"labels_migrated"`
	KeywordsMigrated       int      `json:"keywords_migrated"`
	AttachmentsMigrated    int      `json:"attachments_migrated"`
	PaperAuthorRelations   int      `json:"paper_author_relations"`
	PaperLabelRelations    int      `json:"paper_label_relations"`
	PaperCategoryRelations int      `json:"paper_category_relations"`
	Errors                 []string `json:"errors"`
	DurationMS             int64    `json:"duration_ms"`
}

// NewMigrationReport returns an empty report with a non-nil error list.
func NewMigrationReport() *MigrationReport {
	return &MigrationReport{Errors: []string{}}
}

// OK reports whether every kind succeeded.
func (r *MigrationReport) OK() bool {
	return len(r.Errors) == 0
}

// Total returns the sum of all record and relation counts.
func (r *MigrationReport) Total() int {
	return r.PapersMigrated + r.AuthorsMigrated + r.CategoriesMigrated +
		r.LabelsMigrated + r.KeywordsMigrated + r.AttachmentsMigrated +
		r.PaperAuthorRelations + r.PaperLabelRelations + r.PaperCategoryRelations
}

// SameCounts reports whether r and other carry identical counts. Errors and
// duration are ignored.
func (r *MigrationReport) SameCounts(other *MigrationReport) bool {
	return r.PapersMigrated == other.PapersMigrated &&
		r.AuthorsMigrated == other.AuthorsMigrated &&
		r.CategoriesMigrated == other.CategoriesMigrated &&
		r.LabelsMigrated == other.LabelsMigrated &&
		r.KeywordsMigrated == other.KeywordsMigrated &&
		r.AttachmentsMigrated == other.AttachmentsMigrated &&
		r.PaperAuthorRelations == other.PaperAuthorRelations &&
		r.PaperLabelRelations == other.PaperLabelRelations &&
		r.PaperCategoryRelations == other.PaperCategoryRelations
}
