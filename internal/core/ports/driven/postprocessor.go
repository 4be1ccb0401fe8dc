package driven

import (
	"context"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// ChunkProcessor is one stage of the chunk pipeline.
// The first stage receives nil chunks and creates them from pages.
type ChunkProcessor interface {
	// Name returns the processor identifier used in configuration.
	Name() string

	// Process returns the chunks after this stage.
	Process(ctx context.Context, doc domain.RawDocument, pages []domain.Page, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// ChunkPipeline turns extracted pages into chunks.
type ChunkPipeline interface {
	Process(ctx context.Context, doc domain.RawDocument, pages []domain.Page) ([]domain.Chunk, error)
}
