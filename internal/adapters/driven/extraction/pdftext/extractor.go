// Package pdftext reads the embedded text layer of PDF documents.
package pdftext

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// Extractor returns one page per PDF page using the text layer only.
// Scanned pages come back with little or no text.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// ExtractPages reads every page of the PDF at path.
func (e *Extractor) ExtractPages(ctx context.Context, doc domain.RawDocument, path string) ([]domain.Page, error) {
	if doc.DocType != domain.DocTypePDF {
		return nil, fmt.Errorf("%w: %s is not a PDF", domain.ErrUnsupportedType, doc.Filename)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count := reader.NumPage()
	pages := make([]domain.Page, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, domain.Page{
			PageNumber:       i,
			Text:             pageText(reader.Page(i), i),
			ExtractionMethod: domain.ExtractionText,
		})
	}
	return pages, nil
}

// pageText extracts a page's text. A page that fails to decode yields an
// empty string so that OCR can take over.
func pageText(page pdf.Page, number int) (text string) {
	if page.V.IsNull() {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("pdftext: page %d could not be decoded: %v", number, r)
			text = ""
		}
	}()

	raw, err := page.GetPlainText(nil)
	if err != nil {
		logger.Warn("pdftext: failed to extract text from page %d: %v", number, err)
		return ""
	}
	return strings.TrimSpace(raw)
}
