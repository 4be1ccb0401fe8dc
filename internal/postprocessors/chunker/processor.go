// Package chunker provides a sliding-window, page-preserving text chunker.
package chunker

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.ChunkProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Processor splits page text into overlapping fixed-size windows.
type Processor struct {
	chunkSize int
	overlap   int
	newID     func() string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
// Overlaps at or above the chunk size are accepted; the window still advances.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithIDFunc replaces the chunk id generator.
func WithIDFunc(fn func() string) Option {
	return func(p *Processor) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		newID:     uuid.NewString,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process chunks the pages of doc. Input chunks are ignored; this processor
// creates new chunks and is expected to run first.
func (p *Processor) Process(
	_ context.Context,
	doc domain.RawDocument,
	pages []domain.Page,
	_ []domain.Chunk,
) ([]domain.Chunk, error) {
	return p.Chunk(doc.ID, pages), nil
}

// Chunk splits every page into windows of chunkSize characters that overlap
// by overlap characters. Pages with no text after normalisation yield nothing.
func (p *Processor) Chunk(documentID string, pages []domain.Page) []domain.Chunk {
	var chunks []domain.Chunk

	for _, page := range pages {
		text := []rune(Normalize(page.Text))
		n := len(text)
		if n == 0 {
			continue
		}

		start := 0
		for {
			end := start + p.chunkSize
			if end > n {
				end = n
			}

			if piece := strings.TrimSpace(string(text[start:end])); piece != "" {
				chunks = append(chunks, domain.NewChunk(p.newID(), documentID, page.PageNumber, piece))
			}

			if end == n {
				break
			}

			next := end - p.overlap
			if next < 0 {
				next = 0
			}
			// An overlap at or above the window size would rewind; keep moving.
			if next <= start {
				next = end
			}
			start = next
		}
	}

	return chunks
}

// Normalize replaces non-breaking spaces, collapses whitespace runs to a
// single space and trims both ends.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.Join(strings.Fields(text), " ")
}
