package ai

import (
	"context"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates provider settings by creating the service and
// pinging it.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(context.Background(), config)
	if svc != nil {
		svc.Close()
	}
	return err
}

// ValidateLLM validates an LLM configuration.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(context.Background(), config)
	if svc != nil {
		svc.Close()
	}
	return err
}
