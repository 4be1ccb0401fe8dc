package driven

import "context"

// LLMService is the language-model collaborator used by the answer synthesizer.
// It is optional and must be assumed unreliable: callers wrap every call with
// a timeout and degrade to an evidence-only answer on failure.
//
// Implementations include:
//   - Ollama (local models)
//   - OpenAI (GPT-4o family)
//   - Anthropic (Claude)
type LLMService interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON requests a JSON object response when the provider supports it.
	JSON bool

	// Schema is the JSON Schema the response should follow, if any.
	Schema []byte
}
