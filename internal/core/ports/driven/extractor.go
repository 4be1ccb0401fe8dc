package driven

import (
	"context"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// PageExtractor produces ordered page text for a document.
// path is a readable local copy of the uploaded file.
type PageExtractor interface {
	ExtractPages(ctx context.Context, doc domain.RawDocument, path string) ([]domain.Page, error)
}

// TableExtractor finds tables in a document. Failures are expected to be
// handled by the caller by continuing without tables.
type TableExtractor interface {
	ExtractTables(ctx context.Context, doc domain.RawDocument, pages []domain.Page) ([]domain.Table, error)
}
