package postprocessors

import (
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/postprocessors/chunker"
)

// Processor names.
const (
	ChunkerName   = "chunker"
	MinLengthName = "min_length"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(ChunkerName, buildChunker)
	r.Register(MinLengthName, buildMinLength)
}

// DefaultPipeline builds the standard pipeline: the chunker alone.
func DefaultPipeline(chunkSize, overlap int) *Pipeline {
	return NewPipeline(chunker.New(chunker.WithChunkSize(chunkSize), chunker.WithOverlap(overlap)))
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 800)
//   - overlap (int): Overlapping characters between chunks (default: 120)
func buildChunker(cfg map[string]any) (driven.ChunkProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...), nil
}

// buildMinLength creates a short-chunk filter. Config key: min_chars (int).
func buildMinLength(cfg map[string]any) (driven.ChunkProcessor, error) {
	n, _ := getIntFromConfig(cfg, "min_chars")
	return NewMinLengthFilter(n), nil
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
