// Package hybrid combines text-layer extraction with OCR for scanned pages.
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// DefaultMinTextChars is the trimmed length below which a PDF page is
// treated as scanned.
const DefaultMinTextChars = 50

// Extractor reads the PDF text layer and re-reads sparse pages with OCR.
// Images always go through OCR.
type Extractor struct {
	text         driven.PageExtractor
	ocr          driven.PageExtractor
	minTextChars int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinTextChars sets the sparse-page threshold.
func WithMinTextChars(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.minTextChars = n
		}
	}
}

// New creates an Extractor. ocr may be nil to disable the fallback.
func New(text, ocr driven.PageExtractor, opts ...Option) *Extractor {
	e := &Extractor{text: text, ocr: ocr, minTextChars: DefaultMinTextChars}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractPages returns ordered pages for doc.
func (e *Extractor) ExtractPages(ctx context.Context, doc domain.RawDocument, path string) ([]domain.Page, error) {
	switch doc.DocType {
	case domain.DocTypeImage:
		return e.image(ctx, doc, path)
	case domain.DocTypePDF:
		return e.pdf(ctx, doc, path)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, doc.Filename)
	}
}

func (e *Extractor) image(ctx context.Context, doc domain.RawDocument, path string) ([]domain.Page, error) {
	if e.ocr == nil {
		return nil, fmt.Errorf("%w: no OCR engine configured for %s", domain.ErrUnsupportedType, doc.Filename)
	}
	pages, err := e.ocr.ExtractPages(ctx, doc, path)
	if err != nil {
		return nil, fmt.Errorf("ocr %s: %w", doc.Filename, err)
	}
	for i := range pages {
		pages[i].ExtractionMethod = domain.ExtractionOCR
		pages[i].HasImages = true
	}
	return pages, nil
}

func (e *Extractor) pdf(ctx context.Context, doc domain.RawDocument, path string) ([]domain.Page, error) {
	pages, textErr := e.text.ExtractPages(ctx, doc, path)
	if textErr != nil {
		if e.ocr == nil {
			return nil, fmt.Errorf("extract text from %s: %w", doc.Filename, textErr)
		}
		logger.Warn("hybrid: text extraction failed for %s, trying OCR: %v", doc.Filename, textErr)
		ocrPages, ocrErr := e.ocr.ExtractPages(ctx, doc, path)
		if ocrErr != nil {
			return nil, errors.Join(
				fmt.Errorf("extract text from %s: %w", doc.Filename, textErr),
				fmt.Errorf("ocr %s: %w", doc.Filename, ocrErr),
			)
		}
		return ocrPages, nil
	}

	if e.ocr == nil || !e.hasSparsePage(pages) {
		return pages, nil
	}

	ocrPages, err := e.ocr.ExtractPages(ctx, doc, path)
	if err != nil {
		logger.Warn("hybrid: OCR fallback failed for %s, keeping text layer: %v", doc.Filename, err)
		return pages, nil
	}

	replaced := 0
	for i := range pages {
		if !e.sparse(pages[i]) || i >= len(ocrPages) {
			continue
		}
		text := strings.TrimSpace(ocrPages[i].Text)
		if text == "" {
			continue
		}
		pages[i].Text = text
		pages[i].ExtractionMethod = domain.ExtractionOCR
		replaced++
	}
	logger.Debug("hybrid: %s used OCR for %d of %d pages", doc.Filename, replaced, len(pages))
	return pages, nil
}

func (e *Extractor) hasSparsePage(pages []domain.Page) bool {
	for _, p := range pages {
		if e.sparse(p) {
			return true
		}
	}
	return false
}

func (e *Extractor) sparse(p domain.Page) bool {
	return utf8.RuneCountInString(strings.TrimSpace(p.Text)) < e.minTextChars
}
