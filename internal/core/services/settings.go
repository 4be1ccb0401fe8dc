package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedBatchSize  = "embedding.batch_size"
	keyEmbedWorkers    = "embedding.workers"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTimeout      = "llm.timeout_seconds"
	keyLLMConcurrency  = "llm.max_concurrency"
	keyLLMRate         = "llm.rate_per_second"
	keyIndexBackend    = "index.backend"
	keyIndexDir        = "index.dir"
	keyRegistryBackend = "registry.backend"
	keyStorageBackend  = "storage.backend"
	keyStorageUploads  = "storage.upload_dir"
	keyStorageBucket   = "storage.s3_bucket"
	keyStoragePrefix   = "storage.s3_prefix"
	keyStorageRegion   = "storage.s3_region"
	keyRedisAddr       = "cache.redis_addr"
	keyChunkSize       = "chunking.chunk_size"
	keyChunkOverlap    = "chunking.overlap"
	keyChunkMinChars   = "chunking.min_chars"
	keyOverfetch       = "retrieval.overfetch"
	keyIngestWorkers   = "ingestion.workers"
	keyIngestQueue     = "ingestion.queue_size"
)

// Environment variables that override stored values.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey    = "DOCINTEL_OPENAI_API_KEY"
	EnvAnthropicAPIKey = "DOCINTEL_ANTHROPIC_API_KEY"
	EnvRedisAddr       = "DOCINTEL_REDIS_ADDR"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindProvider
	kindBackend
)

// settingKeys lists every key Set accepts with the type it is stored as.
var settingKeys = map[string]valueKind{
	keyEmbedProvider:   kindProvider,
	keyEmbedModel:      kindString,
	keyEmbedBaseURL:    kindString,
	keyEmbedAPIKey:     kindString,
	keyEmbedDims:       kindInt,
	keyEmbedBatchSize:  kindInt,
	keyEmbedWorkers:    kindInt,
	keyLLMProvider:     kindProvider,
	keyLLMModel:        kindString,
	keyLLMBaseURL:      kindString,
	keyLLMAPIKey:       kindString,
	keyLLMTimeout:      kindInt,
	keyLLMConcurrency:  kindInt,
	keyLLMRate:         kindFloat,
	keyIndexBackend:    kindBackend,
	keyIndexDir:        kindString,
	keyRegistryBackend: kindBackend,
	keyStorageBackend:  kindBackend,
	keyStorageUploads:  kindString,
	keyStorageBucket:   kindString,
	keyStoragePrefix:   kindString,
	keyStorageRegion:   kindString,
	keyRedisAddr:       kindString,
	keyChunkSize:       kindInt,
	keyChunkOverlap:    kindInt,
	keyChunkMinChars:   kindInt,
	keyOverfetch:       kindInt,
	keyIngestWorkers:   kindInt,
	keyIngestQueue:     kindInt,
}

var allowedBackends = map[string][]string{
	keyIndexBackend:    {domain.BackendFile, domain.BackendBolt},
	keyRegistryBackend: {domain.BackendMemory, domain.BackendSQLite},
	keyStorageBackend:  {domain.BackendLocal, domain.BackendS3},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// SettingKeys returns the sorted list of keys accepted by Set.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves current application settings. Environment overrides are
// applied on top of stored values.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, d.Embedding.Dimensions),
			BatchSize:  s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			Workers:    s.getInt(keyEmbedWorkers, d.Embedding.Workers),
		},
		LLM: domain.LLMSettings{
			Provider:       s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:          s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:        s.configStore.GetString(keyLLMBaseURL),
			APIKey:         s.configStore.GetString(keyLLMAPIKey),
			Timeout:        time.Duration(s.getInt(keyLLMTimeout, int(d.LLM.Timeout/time.Second))) * time.Second,
			MaxConcurrency: s.getInt(keyLLMConcurrency, d.LLM.MaxConcurrency),
			RatePerSecond:  s.configStore.GetFloat(keyLLMRate),
		},
		Index: domain.IndexSettings{
			Backend: s.getBackend(keyIndexBackend, d.Index.Backend),
			Dir:     s.configStore.GetString(keyIndexDir),
		},
		Registry: domain.RegistrySettings{
			Backend: s.getBackend(keyRegistryBackend, d.Registry.Backend),
		},
		Storage: domain.StorageSettings{
			Backend:   s.getBackend(keyStorageBackend, d.Storage.Backend),
			UploadDir: s.configStore.GetString(keyStorageUploads),
			S3Bucket:  s.configStore.GetString(keyStorageBucket),
			S3Prefix:  s.configStore.GetString(keyStoragePrefix),
			S3Region:  s.configStore.GetString(keyStorageRegion),
		},
		Cache: domain.CacheSettings{
			RedisAddr: s.configStore.GetString(keyRedisAddr),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize: s.getInt(keyChunkSize, d.Chunking.ChunkSize),
			Overlap:   s.getInt(keyChunkOverlap, d.Chunking.Overlap),
			MinChars:  s.getInt(keyChunkMinChars, d.Chunking.MinChars),
		},
		Retrieval: domain.RetrievalSettings{
			Overfetch: s.getInt(keyOverfetch, d.Retrieval.Overfetch),
		},
		Ingestion: domain.IngestionSettings{
			Workers:   s.getInt(keyIngestWorkers, d.Ingestion.Workers),
			QueueSize: s.getInt(keyIngestQueue, d.Ingestion.QueueSize),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v, ok := s.lookupEnv(EnvOpenAIAPIKey); ok && v != "" {
		if settings.Embedding.Provider == domain.AIProviderOpenAI {
			settings.Embedding.APIKey = v
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.APIKey = v
		}
	}
	if v, ok := s.lookupEnv(EnvAnthropicAPIKey); ok && v != "" {
		if settings.LLM.Provider == domain.AIProviderAnthropic {
			settings.LLM.APIKey = v
		}
	}
	if v, ok := s.lookupEnv(EnvRedisAddr); ok && v != "" {
		settings.Cache.RedisAddr = v
	}
}

// Save persists application settings. Empty API keys are not written so
// that keys supplied through the environment never reach the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedWorkers, settings.Embedding.Workers},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTimeout, int(settings.LLM.Timeout / time.Second)},
		{keyLLMConcurrency, settings.LLM.MaxConcurrency},
		{keyLLMRate, settings.LLM.RatePerSecond},
		{keyIndexBackend, settings.Index.Backend},
		{keyIndexDir, settings.Index.Dir},
		{keyRegistryBackend, settings.Registry.Backend},
		{keyStorageBackend, settings.Storage.Backend},
		{keyStorageUploads, settings.Storage.UploadDir},
		{keyStorageBucket, settings.Storage.S3Bucket},
		{keyStoragePrefix, settings.Storage.S3Prefix},
		{keyStorageRegion, settings.Storage.S3Region},
		{keyRedisAddr, settings.Cache.RedisAddr},
		{keyChunkSize, settings.Chunking.ChunkSize},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyChunkMinChars, settings.Chunking.MinChars},
		{keyOverfetch, settings.Retrieval.Overfetch},
		{keyIngestWorkers, settings.Ingestion.Workers},
		{keyIngestQueue, settings.Ingestion.QueueSize},
	}
	if settings.Embedding.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var stored any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		stored = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		stored = f
	case kindProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() {
			return fmt.Errorf("%w: invalid provider %q", domain.ErrInvalidInput, value)
		}
		stored = value
	case kindBackend:
		if !contains(allowedBackends[key], value) {
			return fmt.Errorf("%w: %s must be one of %s",
				domain.ErrInvalidInput, key, strings.Join(allowedBackends[key], ", "))
		}
		stored = value
	default:
		stored = value
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider and adjusts the
// index dimension to the model's native size when it is known.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !containsProvider(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if !containsProvider(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("provider %s does not generate text", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig pings the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if !contains(allowedBackends[key], val) {
		return defaultVal
	}
	return val
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a local provider's base URL and clears it for cloud ones.
func baseURLFor(provider domain.AIProvider, current string) string {
	switch {
	case provider == domain.AIProviderOllama && current == "":
		return "http://localhost:11434"
	case provider.IsLocal():
		return current
	default:
		return ""
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsProvider(list []domain.AIProvider, p domain.AIProvider) bool {
	for _, item := range list {
		if item == p {
			return true
		}
	}
	return false
}
