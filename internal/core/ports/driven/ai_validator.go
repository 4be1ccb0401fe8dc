package driven

import "github.com/custodia-labs/docintel/internal/core/domain"

// AIConfigValidator checks provider settings by contacting the provider.
// SettingsService calls it before persisting provider changes.
type AIConfigValidator interface {
	// ValidateEmbedding returns nil if the settings work or are unconfigured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM returns nil if the settings work or are unconfigured.
	ValidateLLM(config *domain.LLMSettings) error
}
