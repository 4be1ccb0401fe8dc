// Package postprocessors turns extracted pages into chunks through an
// ordered, configurable chain of chunk processors.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.ChunkPipeline = (*Pipeline)(nil)

// Pipeline chains ChunkProcessors and runs them in order.
type Pipeline struct {
	processors []driven.ChunkProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.ChunkProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the pages through all processors in order.
// The first processor receives nil chunks and should create them.
func (p *Pipeline) Process(ctx context.Context, doc domain.RawDocument, pages []domain.Page) ([]domain.Chunk, error) {
	if len(p.processors) == 0 {
		return nil, fmt.Errorf("chunk pipeline has no processors")
	}

	var chunks []domain.Chunk
	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, doc, pages, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.ChunkProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
