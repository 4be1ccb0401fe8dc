package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docintel/internal/adapters/driven/ai"
	"github.com/custodia-labs/docintel/internal/adapters/driven/blob/local"
	"github.com/custodia-labs/docintel/internal/adapters/driven/blob/s3"
	"github.com/custodia-labs/docintel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docintel/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/docintel/internal/adapters/driven/extraction/hybrid"
	"github.com/custodia-labs/docintel/internal/adapters/driven/extraction/ocr"
	"github.com/custodia-labs/docintel/internal/adapters/driven/extraction/pdftext"
	"github.com/custodia-labs/docintel/internal/adapters/driven/extraction/tables"
	"github.com/custodia-labs/docintel/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/docintel/internal/adapters/driven/schema/jsonschema"
	"github.com/custodia-labs/docintel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docintel/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docintel/internal/adapters/driven/vector/bolt"
	"github.com/custodia-labs/docintel/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docintel/internal/adapters/driving/cli"
	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/core/services"
	"github.com/custodia-labs/docintel/internal/logger"
	"github.com/custodia-labs/docintel/internal/postprocessors"
)

// Environment overrides applied on top of stored settings.
const (
	envOpenAIKey    = "DOCINTEL_OPENAI_API_KEY"
	envAnthropicKey = "DOCINTEL_ANTHROPIC_API_KEY"
	envRedisAddr    = "DOCINTEL_REDIS_ADDR"
)

// Directory and file names under the data directory.
const (
	indexDirName  = "index"
	indexBoltName = "index.bolt"
	uploadDirName = "uploads"
)

// closers releases resources in reverse acquisition order.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// build wires every adapter into the core services.
func build(ctx context.Context, opts cli.Options) (_ *cli.Services, err error) {
	dataDir := opts.ConfigDir
	if dataDir == "" {
		if dataDir, err = file.DefaultDataDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var cleanup closers
	defer func() {
		if err != nil {
			_ = cleanup.close()
		}
	}()

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	prompts, err := file.NewPromptStore(filepath.Join(dataDir, file.PromptDirName))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	applyEnv(settings)

	aiResult := ai.Initialise(ctx, settings)
	cleanup.add(func() error {
		aiResult.Close()
		return nil
	})
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}

	metrics := prometheus.NewRecorder()

	index, err := openIndex(ctx, dataDir, settings)
	if err != nil {
		return nil, err
	}
	cleanup.add(index.Close)

	registry, err := openRegistry(dataDir, settings, &cleanup)
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobStore(ctx, dataDir, settings)
	if err != nil {
		return nil, err
	}

	schemas, err := jsonschema.New()
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}

	var gatewayOpts []services.GatewayOption
	gatewayOpts = append(gatewayOpts,
		services.WithBatchSize(settings.Embedding.BatchSize),
		services.WithEmbedWorkers(settings.Embedding.Workers),
	)
	if addr := settings.Cache.RedisAddr; addr != "" {
		redisCache, cacheErr := cache.NewRedisCache(ctx, cache.Config{Addr: addr})
		if cacheErr != nil {
			logger.Warn("embedding cache disabled: %v", cacheErr)
		} else {
			cleanup.add(redisCache.Close)
			gatewayOpts = append(gatewayOpts, services.WithEmbeddingCache(redisCache))
		}
	}
	gateway := services.NewEmbeddingGateway(aiResult.EmbeddingService, settings.Embedding.Dimensions, gatewayOpts...)

	pipeline, err := chunkPipeline(settings)
	if err != nil {
		return nil, err
	}

	pages := hybrid.New(pdftext.New(), ocr.New())
	ingestion := services.NewIngestionService(blobs, registry, pages, pipeline, gateway, index,
		services.WithIngestWorkers(settings.Ingestion.Workers),
		services.WithQueueSize(settings.Ingestion.QueueSize),
		services.WithTableExtractor(tables.New()),
		services.WithIngestionMetrics(metrics),
	)

	retriever := services.NewRetriever(gateway, index, settings.Retrieval.Overfetch)
	synthesizer := services.NewSynthesizer(aiResult.LLMService,
		services.WithPromptStore(prompts),
		services.WithSchemaRegistry(schemas),
		services.WithSynthesizerMetrics(metrics),
		services.WithLLMTimeout(settings.LLM.Timeout),
		services.WithLLMRateLimit(settings.LLM.RatePerSecond),
		services.WithLLMConcurrency(settings.LLM.MaxConcurrency),
	)
	evaluation := services.NewEvaluationService(schemas, metrics)
	query := services.NewQueryService(retriever, synthesizer, evaluation, schemas, metrics)

	ingestion.Start()
	go func() {
		if _, err := ingestion.Resume(ctx); err != nil {
			logger.Warn("resume unfinished documents: %v", err)
		}
	}()

	return &cli.Services{
		Documents:  ingestion,
		Query:      query,
		Evaluation: evaluation,
		Settings:   settingsService,
		Metrics:    metrics.Handler(),
		Close: func(ctx context.Context) error {
			shutdownErr := ingestion.Shutdown(ctx)
			return errors.Join(shutdownErr, cleanup.close())
		},
	}, nil
}

// applyEnv overlays secrets and endpoints from the environment.
func applyEnv(settings *domain.AppSettings) {
	if key := os.Getenv(envOpenAIKey); key != "" {
		if settings.Embedding.Provider == domain.AIProviderOpenAI {
			settings.Embedding.APIKey = key
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.APIKey = key
		}
	}
	if key := os.Getenv(envAnthropicKey); key != "" && settings.LLM.Provider == domain.AIProviderAnthropic {
		settings.LLM.APIKey = key
	}
	if addr := os.Getenv(envRedisAddr); addr != "" {
		settings.Cache.RedisAddr = addr
	}
}

func openIndex(ctx context.Context, dataDir string, settings *domain.AppSettings) (*flat.Index, error) {
	dir := settings.Index.Dir

	var persister driven.IndexPersister
	switch settings.Index.Backend {
	case domain.BackendBolt:
		if dir == "" {
			dir = dataDir
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
		p, err := bolt.NewPersister(filepath.Join(dir, indexBoltName))
		if err != nil {
			return nil, fmt.Errorf("open bolt index: %w", err)
		}
		persister = p
	case domain.BackendFile, "":
		if dir == "" {
			dir = filepath.Join(dataDir, indexDirName)
		}
		p, err := flat.NewFilePersister(dir)
		if err != nil {
			return nil, fmt.Errorf("open file index: %w", err)
		}
		persister = p
	case domain.BackendMemory:
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, settings.Index.Backend)
	}

	index, err := flat.Open(ctx, settings.Embedding.Dimensions, persister)
	if err != nil {
		if persister != nil {
			_ = persister.Close()
		}
		return nil, err
	}
	return index, nil
}

func openRegistry(dataDir string, settings *domain.AppSettings, cleanup *closers) (driven.DocumentRegistry, error) {
	switch settings.Registry.Backend {
	case domain.BackendMemory:
		return memory.NewRegistry(), nil
	case domain.BackendSQLite, "":
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open registry: %w", err)
		}
		cleanup.add(store.Close)
		return store.Registry(), nil
	default:
		return nil, fmt.Errorf("%w: unknown registry backend %q", domain.ErrInvalidInput, settings.Registry.Backend)
	}
}

func openBlobStore(ctx context.Context, dataDir string, settings *domain.AppSettings) (driven.BlobStore, error) {
	st := settings.Storage
	switch st.Backend {
	case domain.BackendS3:
		store, err := s3.NewStore(ctx, s3.Config{
			Bucket: st.S3Bucket,
			Prefix: st.S3Prefix,
			Region: st.S3Region,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 storage: %w", err)
		}
		return store, nil
	case domain.BackendLocal, "":
		dir := st.UploadDir
		if dir == "" {
			dir = filepath.Join(dataDir, uploadDirName)
		}
		store, err := local.NewStore(dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, st.Backend)
	}
}

// chunkPipeline builds the chunker, followed by the short-chunk filter
// only when chunking.min_chars is set.
func chunkPipeline(settings *domain.AppSettings) (*postprocessors.Pipeline, error) {
	reg := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(reg)

	names := []string{postprocessors.ChunkerName}
	configs := map[string]map[string]any{
		postprocessors.ChunkerName: {
			"chunk_size": settings.Chunking.ChunkSize,
			"overlap":    settings.Chunking.Overlap,
		},
	}
	if n := settings.Chunking.MinChars; n > 0 {
		names = append(names, postprocessors.MinLengthName)
		configs[postprocessors.MinLengthName] = map[string]any{"min_chars": n}
	}
	return reg.BuildPipeline(names, configs)
}
