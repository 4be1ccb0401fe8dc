package postprocessors

import (
	"context"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure MinLengthFilter implements the interface.
var _ driven.ChunkProcessor = (*MinLengthFilter)(nil)

// DefaultMinChars is the filter threshold when none is configured.
const DefaultMinChars = 20

// MinLengthFilter drops chunks shorter than a character threshold, such as
// page numbers or running headers left over after chunking.
type MinLengthFilter struct {
	minChars int
}

// NewMinLengthFilter creates a filter. Non-positive thresholds use DefaultMinChars.
func NewMinLengthFilter(minChars int) *MinLengthFilter {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &MinLengthFilter{minChars: minChars}
}

// Name returns the processor name.
func (f *MinLengthFilter) Name() string {
	return MinLengthName
}

// Process keeps chunks with at least minChars characters.
func (f *MinLengthFilter) Process(
	_ context.Context,
	_ domain.RawDocument,
	_ []domain.Page,
	chunks []domain.Chunk,
) ([]domain.Chunk, error) {
	kept := chunks[:0:0]
	for _, c := range chunks {
		if c.CharCount >= f.minChars {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
