// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations must be deterministic: the same text yields the same
// vector regardless of which batch it is sent in.
//
// Implementations include:
//   - Hash (offline hashing vectorizer)
//   - Ollama (all-minilm, nomic-embed-text)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, 1:1 and in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	// This must match the VectorIndex dimension.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingCache stores computed vectors keyed by model and text.
// Cache failures must never fail an embedding request.
type EmbeddingCache interface {
	// Get returns the cached vector and true on a hit.
	Get(ctx context.Context, model, text string) ([]float32, bool, error)

	// Set stores a vector.
	Set(ctx context.Context, model, text string, vector []float32) error

	// Close releases resources.
	Close() error
}
