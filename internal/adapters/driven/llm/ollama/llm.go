// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docintel/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama LLM service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService generates text using the Ollama /api/generate endpoint.
type LLMService struct {
	client  *httpjson.Client
	baseURL string
	model   string
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  json.RawMessage `json:"format,omitempty"`
	Options *options        `json:"options,omitempty"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg Config) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client:  httpjson.New("ollama", domain.ErrLLMUnavailable, cfg.Timeout, nil),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// Generate produces a completion. With opts.Schema set, Ollama constrains
// the output to that schema; with opts.JSON alone it returns any JSON object.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Options: &options{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}
	switch {
	case len(opts.Schema) > 0:
		req.Format = json.RawMessage(opts.Schema)
	case opts.JSON:
		req.Format = json.RawMessage(`"json"`)
	}

	var resp generateResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/api/generate", req, &resp); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return resp.Response, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks /api/tags, which does not load a model.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, s.baseURL+"/api/tags")
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
