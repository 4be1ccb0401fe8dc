// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	hashembed "github.com/custodia-labs/docintel/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/docintel/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docintel/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docintel/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docintel/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docintel/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	// EmbeddingService is never nil; it falls back to the hash embedder.
	EmbeddingService driven.EmbeddingService

	// LLMService is nil when no provider is configured or reachable.
	LLMService driven.LLMService

	// Warnings lists non-fatal issues that caused a fallback.
	Warnings []string

	// FellBack is true if the configured embedding provider was replaced.
	FellBack bool
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise creates and pings the configured providers. An unreachable
// embedding provider is replaced with the hash embedder at the configured
// dimension so the index stays compatible; an unreachable LLM is dropped.
func Initialise(ctx context.Context, settings *domain.AppSettings) *InitResult {
	result := &InitResult{}

	embed, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
		logger.Warn("embedding provider %s unavailable, using hash embedder: %v", settings.Embedding.Provider, err)
	}
	if embed == nil {
		embed = hashembed.NewEmbeddingService(settings.Embedding.Dimensions)
	}
	result.EmbeddingService = embed

	llm, err := CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		logger.Warn("llm provider %s unavailable, answers will be evidence-only: %v", settings.LLM.Provider, err)
	}
	result.LLMService = llm

	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docintel settings set' to fix", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docintel settings set' to fix", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service named by settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, fmt.Errorf("anthropic does not support embeddings, use hash, ollama or openai")
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderHash:
		return hashembed.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		dimensions := settings.Dimensions
		if dimensions == 0 {
			dimensions = domain.EmbeddingDimensions()[settings.Model]
		}
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the LLM service named by settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}
