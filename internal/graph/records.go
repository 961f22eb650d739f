package graph

import "time"

// Record tables.
const (
	TablePaper      = "paper"
	TableAuthor     = "author"
	TableCategory   = "category"
	TableLabel      = "label"
	TableKeyword    = "keyword"
	TableAttachment = "attachment"
)

// Edge tables. Edges point from a paper to the related record.
const (
	EdgePaperAuthor   = "paper_author"
	EdgePaperLabel    = "paper_label"
	EdgePaperCategory = "paper_category"
)

// PaperRecord is a paper node.
type PaperRecord struct {
	ID              RecordID  `json:"id"`
	Title           string    `json:"title"`
	Abstract        *string   `json:"abstract,omitempty"`
	DOI             *string   `json:"doi,omitempty"`
	PublicationYear *int32    `json:"publication_year,omitempty"`
	PublicationDate *string   `json:"publication_date,omitempty"`
	JournalName     *string   `json:"journal_name,omitempty"`
	ConferenceName  *string   `json:"conference_name,omitempty"`
	Volume          *string   `json:"volume,omitempty"`
	Issue           *string   `json:"issue,omitempty"`
	Pages           *string   `json:"pages,omitempty"`
	URL             *string   `json:"url,omitempty"`
	CitationCount   int32     `json:"citation_count"`
	ReadStatus      string    `json:"read_status"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AuthorRecord is an author node.
type AuthorRecord struct {
	ID          RecordID  `json:"id"`
	Name        string    `json:"name"`
	Affiliation *string   `json:"affiliation,omitempty"`
	Email       *string   `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryRecord is a category node. Parent links to another category.
type CategoryRecord struct {
	ID            RecordID  `json:"id"`
	Name          string    `json:"name"`
	Parent        *RecordID `json:"parent,omitempty"`
	SortOrder     int32     `json:"sort_order"`
	DocumentCount int32     `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LabelRecord is a label node.
type LabelRecord struct {
	ID            RecordID  `json:"id"`
	Name          string    `json:"name"`
	Color         string    `json:"color"`
	DocumentCount int32     `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// KeywordRecord is a keyword node.
type KeywordRecord struct {
	ID        RecordID  `json:"id"`
	Word      string    `json:"word"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentRecord is an attachment node owned by a paper.
type AttachmentRecord struct {
	ID        RecordID  `json:"id"`
	Paper     RecordID  `json:"paper"`
	FileName  *string   `json:"file_name,omitempty"`
	FileType  *string   `json:"file_type,omitempty"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaperAuthorEdge is the content of a paper_author edge.
type PaperAuthorEdge struct {
	ID              RecordID  `json:"id"`
	In              RecordID  `json:"in"`
	Out             RecordID  `json:"out"`
	AuthorOrder     int32     `json:"author_order"`
	IsCorresponding bool      `json:"is_corresponding"`
	CreatedAt       time.Time `json:"created_at"`
}

// LinkEdge is the content of paper_label and paper_category edges.
type LinkEdge struct {
	ID        RecordID  `json:"id"`
	In        RecordID  `json:"in"`
	Out       RecordID  `json:"out"`
	CreatedAt time.Time `json:"created_at"`
}
