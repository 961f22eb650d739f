package relational

import "time"

// Kind names an entity or join table.
type Kind string

// Entity and join kinds.
const (
	KindLabel         Kind = "labels"
	KindKeyword       Kind = "keywords"
	KindAuthor        Kind = "authors"
	KindCategory      Kind = "categories"
	KindPaper         Kind = "papers"
	KindAttachment    Kind = "attachments"
	KindPaperAuthor   Kind = "paper_authors"
	KindPaperLabel    Kind = "paper_labels"
	KindPaperCategory Kind = "paper_categories"
)

// Kinds returns every kind in dependency order.
func Kinds() []Kind {
	return []Kind{
		KindLabel, KindKeyword, KindAuthor, KindCategory, KindPaper,
		KindAttachment, KindPaperAuthor, KindPaperLabel, KindPaperCategory,
	}
}

// Label is a row of the labels table.
type Label struct {
	ID            int64
	Name          string
	Color         string
	DocumentCount *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Keyword is a row of the keywords table.
type Keyword struct {
	ID        int64
	Word      string
	CreatedAt time.Time
}

// Author is a row of the authors table.
type Author struct {
	ID          int64
	Name        string
	Affiliation *string
	Email       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category is a row of the categories table.
type Category struct {
	ID            int64
	Name          string
	ParentID      *int64
	SortOrder     *int64
	DocumentCount *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Paper is a row of the papers table. DeletedAt is set for soft-deleted
// papers.
type Paper struct {
	ID              int64
	Title           string
	Abstract        *string
	DOI             *string
	PublicationYear *int64
	PublicationDate *string
	JournalName     *string
	ConferenceName  *string
	Volume          *string
	Issue           *string
	Pages           *string
	URL             *string
	CitationCount   *int64
	ReadStatus      string
	Notes           *string
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Attachment is a row of the attachments table.
type Attachment struct {
	ID        int64
	PaperID   int64
	FileName  *string
	FileType  *string
	FileSize  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaperAuthor is a row of the paper_authors join table.
type PaperAuthor struct {
	PaperID         int64
	AuthorID        int64
	AuthorOrder     *int64
	IsCorresponding *bool
}

// PaperLabel is a row of the paper_labels join table.
type PaperLabel struct {
	PaperID int64
	LabelID int64
}

// PaperCategory is a row of the paper_categories join table.
type PaperCategory struct {
	PaperID    int64
	CategoryID int64
}

// PaperFilter narrows paper queries.
type PaperFilter struct {
	// IncludeDeleted returns soft-deleted papers as well.
	IncludeDeleted bool
}
