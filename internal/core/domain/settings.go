package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHash is the offline hashing embedder. It needs no network.
	AIProviderHash AIProvider = "hash"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHash, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHash
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHash:
		return "Hashing vectorizer (offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Dimensions is the vector size D. It must match the index.
	Dimensions int

	// BatchSize is the number of texts sent per provider call.
	BatchSize int

	// Workers bounds concurrent provider calls.
	Workers int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Timeout bounds a single completion call. Exceeding it triggers fallback.
	Timeout time.Duration

	// MaxConcurrency bounds in-flight completion calls.
	MaxConcurrency int

	// RatePerSecond limits completion calls per second. Zero means unlimited.
	RatePerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHash {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// Backend names used by the storage-related settings.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendLocal  = "local"
	BackendS3     = "s3"
)

// IndexSettings selects where vectors are persisted.
type IndexSettings struct {
	// Backend is "file" or "bolt".
	Backend string

	// Dir is the index directory (file) or the directory holding index.bolt.
	Dir string
}

// RegistrySettings selects the document registry implementation.
type RegistrySettings struct {
	// Backend is "memory" or "sqlite".
	Backend string
}

// StorageSettings selects where uploaded files are kept.
type StorageSettings struct {
	// Backend is "local" or "s3".
	Backend   string
	UploadDir string
	S3Bucket  string
	S3Prefix  string
	S3Region  string
}

// CacheSettings configures the optional embedding cache.
type CacheSettings struct {
	// RedisAddr enables the Redis cache when non-empty.
	RedisAddr string
}

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	ChunkSize int
	Overlap   int

	// MinChars drops chunks shorter than this many runes. Zero keeps
	// every non-empty chunk.
	MinChars int
}

// RetrievalSettings configures the retriever.
type RetrievalSettings struct {
	// Overfetch multiplies top_k when a document filter is present. 1 disables.
	Overfetch int
}

// IngestionSettings configures the background ingestion queue.
type IngestionSettings struct {
	Workers   int
	QueueSize int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Index     IndexSettings
	Registry  RegistrySettings
	Storage   StorageSettings
	Cache     CacheSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Ingestion IngestionSettings
}

// Default values for settings.
const (
	DefaultDimensions     = 384
	DefaultBatchSize      = 16
	DefaultEmbedWorkers   = 4
	DefaultLLMTimeout     = 30 * time.Second
	DefaultLLMConcurrency = 4
	DefaultChunkSize      = 800
	DefaultChunkOverlap   = 120
	DefaultOverfetch      = 4
	DefaultIngestWorkers  = 2
	DefaultQueueSize      = 64
	MaxUploadBytes        = 10 << 20
)

// DefaultAppSettings returns settings with sensible defaults.
// The offline hash embedder is used until a remote provider is configured,
// and the LLM is left unconfigured so answers fall back to evidence.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHash,
			Model:      DefaultEmbeddingModels()[AIProviderHash],
			Dimensions: DefaultDimensions,
			BatchSize:  DefaultBatchSize,
			Workers:    DefaultEmbedWorkers,
		},
		LLM: LLMSettings{
			Timeout:        DefaultLLMTimeout,
			MaxConcurrency: DefaultLLMConcurrency,
		},
		Index:     IndexSettings{Backend: BackendFile},
		Registry:  RegistrySettings{Backend: BackendSQLite},
		Storage:   StorageSettings{Backend: BackendLocal},
		Chunking:  ChunkingSettings{ChunkSize: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		Retrieval: RetrievalSettings{Overfetch: DefaultOverfetch},
		Ingestion: IngestionSettings{Workers: DefaultIngestWorkers, QueueSize: DefaultQueueSize},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHash,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHash:   "hashing-vectorizer",
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
