package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

func shortPage() []domain.Page {
	return []domain.Page{{PageNumber: 1, Text: "Total due: $4,200", ExtractionMethod: domain.ExtractionOCR}}
}

func TestChunkPipeline_DefaultKeepsShortPage(t *testing.T) {
	settings := domain.DefaultAppSettings()

	pipeline, err := chunkPipeline(&settings)
	require.NoError(t, err)
	assert.Equal(t, 1, pipeline.Len())

	chunks, err := pipeline.Process(context.Background(), domain.RawDocument{ID: "doc-1"}, shortPage())

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Total due: $4,200", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].PageNumber)
}

func TestChunkPipeline_MinCharsAddsFilter(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Chunking.MinChars = 20

	pipeline, err := chunkPipeline(&settings)
	require.NoError(t, err)
	assert.Equal(t, 2, pipeline.Len())

	chunks, err := pipeline.Process(context.Background(), domain.RawDocument{ID: "doc-1"}, shortPage())

	require.NoError(t, err)
	assert.Empty(t, chunks)
}
