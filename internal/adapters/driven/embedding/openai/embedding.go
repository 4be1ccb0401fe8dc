// Package openai provides an embedding service adapter using the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docintel/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL can point at Azure OpenAI or any compatible API.
	BaseURL string

	Model   string
	Timeout time.Duration

	// Dimensions requests shortened vectors from text-embedding-3-* models.
	// Zero uses the model's native size.
	Dimensions int
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client     *httpjson.Client
	baseURL    string
	model      string
	dimensions int
	shortened  bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	shortened := strings.HasPrefix(cfg.Model, "text-embedding-3-") && cfg.Dimensions > 0
	dimensions := cfg.Dimensions
	if !shortened {
		native, ok := domain.EmbeddingDimensions()[cfg.Model]
		if !ok && dimensions == 0 {
			return nil, fmt.Errorf("openai: unknown dimensions for model %q", cfg.Model)
		}
		if ok {
			dimensions = native
		}
	}

	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	return &EmbeddingService{
		client:     httpjson.New("openai", domain.ErrEmbeddingUnavailable, cfg.Timeout, headers),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: dimensions,
		shortened:  shortened,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request and restores input order from
// the response indices.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := embeddingRequest{Model: s.model, Input: texts}
	if s.shortened {
		req.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/embeddings", req, &resp); err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: openai returned index %d for %d texts",
				domain.ErrEmbeddingUnavailable, d.Index, len(texts))
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: openai returned no embedding for input %d", domain.ErrEmbeddingUnavailable, i)
		}
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which validates the key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, s.baseURL+"/models")
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
