package domain

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// DocType classifies an uploaded file by how its text is obtained.
type DocType string

// Supported document types.
const (
	DocTypePDF     DocType = "pdf"
	DocTypeImage   DocType = "image"
	DocTypeUnknown DocType = "unknown"
)

// DocTypeFromFilename derives the document type from the file extension.
func DocTypeFromFilename(name string) DocType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return DocTypePDF
	case ".png", ".jpg", ".jpeg", ".tiff", ".tif":
		return DocTypeImage
	default:
		return DocTypeUnknown
	}
}

// ContentTypeFor returns the MIME type recorded for a document type and name.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// RawDocument is an uploaded file before any extraction.
type RawDocument struct {
	// ID is the generated document identifier.
	ID string `json:"id"`

	// Filename is the original upload name.
	Filename string `json:"filename"`

	// Path is the blob store key the file was written to.
	Path string `json:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ContentType is the MIME type derived from the filename.
	ContentType string `json:"content_type"`

	// UploadedAt is when the upload was accepted.
	UploadedAt time.Time `json:"uploaded_at"`

	// DocType selects the extraction strategy.
	DocType DocType `json:"doc_type"`
}

// ExtractionMethod records how a page's text was obtained.
type ExtractionMethod string

// Extraction methods.
const (
	ExtractionText   ExtractionMethod = "text"
	ExtractionOCR    ExtractionMethod = "ocr"
	ExtractionHybrid ExtractionMethod = "hybrid"
)

// Page is the extracted text of one 1-based page.
type Page struct {
	PageNumber       int              `json:"page_number"`
	Text             string           `json:"text"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	HasImages        bool             `json:"has_images"`
	HasTables        bool             `json:"has_tables"`
}

// BlockType identifies the kind of content a Block holds.
type BlockType string

// Block types.
const (
	BlockText  BlockType = "text"
	BlockTable BlockType = "table"
)

// Block is a typed region of a page.
type Block struct {
	ID         string         `json:"block_id"`
	PageNumber int            `json:"page_number"`
	Type       BlockType      `json:"block_type"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Table is a grid extracted from a page.
type Table struct {
	Page       int        `json:"page"`
	TableIndex int        `json:"table_index"`
	Rows       int        `json:"rows"`
	Columns    int        `json:"columns"`
	Data       [][]string `json:"data"`
	Text       string     `json:"text"`
}

// TableText renders table cells as " | " separated lines.
func TableText(data [][]string) string {
	lines := make([]string, 0, len(data))
	for _, row := range data {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

// NewTable builds a Table and its text rendering from a cell grid.
func NewTable(page, index int, data [][]string) Table {
	cols := 0
	if len(data) > 0 {
		cols = len(data[0])
	}
	return Table{
		Page:       page,
		TableIndex: index,
		Rows:       len(data),
		Columns:    cols,
		Data:       data,
		Text:       TableText(data),
	}
}

// Chunk is a bounded, page-tagged slice of document text sized for embedding.
type Chunk struct {
	// ID is unique across the whole corpus.
	ID string `json:"chunk_id"`

	// DocumentID links to the parent RawDocument.
	DocumentID string `json:"doc_id"`

	// PageNumber is the 1-based page the text came from.
	PageNumber int `json:"page"`

	// Text is the trimmed, non-empty chunk text.
	Text string `json:"text"`

	// CharCount is the number of characters (runes) in Text.
	CharCount int `json:"char_count"`
}

// NewChunk creates a chunk and derives its character count.
func NewChunk(id, documentID string, page int, text string) Chunk {
	return Chunk{
		ID:         id,
		DocumentID: documentID,
		PageNumber: page,
		Text:       text,
		CharCount:  utf8.RuneCountInString(text),
	}
}

// EmbeddingRecord is the vector computed for one chunk.
type EmbeddingRecord struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"doc_id"`
	Vector     []float32 `json:"-"`
	Model      string    `json:"model"`
	Dim        int       `json:"dim"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExtractionResult is a structured extraction validated against a named schema.
type ExtractionResult struct {
	SchemaName string         `json:"schema_name"`
	Payload    map[string]any `json:"payload"`
	Valid      bool           `json:"valid"`
	Errors     []string       `json:"errors,omitempty"`
}

// DocumentStatus is the processing state of a registered document.
type DocumentStatus string

// Document states.
const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// DocumentArtifacts aggregates everything the pipeline produced for a document.
type DocumentArtifacts struct {
	Raw         RawDocument        `json:"raw"`
	Status      DocumentStatus     `json:"status"`
	Error       string             `json:"error,omitempty"`
	Pages       []Page             `json:"pages"`
	Blocks      []Block            `json:"blocks"`
	Chunks      []Chunk            `json:"chunks"`
	Embeddings  []EmbeddingRecord  `json:"embeddings"`
	Extractions []ExtractionResult `json:"extractions"`
	Tables      []Table            `json:"tables"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// IsEmpty reports whether no pipeline output has been recorded.
// A failed document is always empty.
func (a *DocumentArtifacts) IsEmpty() bool {
	return len(a.Pages) == 0 && len(a.Blocks) == 0 &&
		len(a.Chunks) == 0 && len(a.Embeddings) == 0
}

// ExtractionMethod summarises how the document's pages were read.
// Mixed per-page methods report hybrid.
func (a *DocumentArtifacts) ExtractionMethod() ExtractionMethod {
	if len(a.Pages) == 0 {
		return ExtractionText
	}
	method := a.Pages[0].ExtractionMethod
	for _, p := range a.Pages[1:] {
		if p.ExtractionMethod != method {
			return ExtractionHybrid
		}
	}
	return method
}

// Summary returns the status counts for the document.
func (a *DocumentArtifacts) Summary() DocumentSummary {
	return DocumentSummary{
		DocumentID:       a.Raw.ID,
		Filename:         a.Raw.Filename,
		Status:           a.Status,
		Error:            a.Error,
		Pages:            len(a.Pages),
		Chunks:           len(a.Chunks),
		Blocks:           len(a.Blocks),
		Embeddings:       len(a.Embeddings),
		Extractions:      len(a.Extractions),
		Tables:           len(a.Tables),
		ExtractionMethod: a.ExtractionMethod(),
		UploadedAt:       a.Raw.UploadedAt,
	}
}

// DocumentSummary is the status view of a registered document.
type DocumentSummary struct {
	DocumentID       string           `json:"doc_id"`
	Filename         string           `json:"filename"`
	Status           DocumentStatus   `json:"status"`
	Error            string           `json:"error,omitempty"`
	Pages            int              `json:"pages"`
	Chunks           int              `json:"chunks"`
	Blocks           int              `json:"blocks"`
	Embeddings       int              `json:"embeddings"`
	Extractions      int              `json:"extractions"`
	Tables           int              `json:"tables"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	UploadedAt       time.Time        `json:"uploaded_at"`
}
