package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
	"github.com/custodia-labs/docintel/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.DocumentService = (*IngestionService)(nil)

// IngestionService accepts uploads and processes them in the background.
// Each document id is dispatched to the worker pool at most once.
type IngestionService struct {
	blobs    driven.BlobStore
	registry driven.DocumentRegistry
	pages    driven.PageExtractor
	tables   driven.TableExtractor
	pipeline driven.ChunkPipeline
	gateway  *EmbeddingGateway
	index    driven.VectorIndex
	metrics  driven.MetricsRecorder

	workers   int
	queueSize int
	maxBytes  int64
	newID     func() string
	now       func() time.Time

	// mu guards queue sends against Shutdown closing the queue.
	mu      sync.RWMutex
	queue   chan string
	closed  bool
	seenMu  sync.Mutex
	seen    map[string]struct{}
	wg      sync.WaitGroup
	started sync.Once
}

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService)

// WithIngestWorkers sets the number of background workers.
func WithIngestWorkers(n int) IngestionOption {
	return func(s *IngestionService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize sets the pending queue capacity.
func WithQueueSize(n int) IngestionOption {
	return func(s *IngestionService) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithMaxUploadBytes overrides the upload size limit.
func WithMaxUploadBytes(n int64) IngestionOption {
	return func(s *IngestionService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithTableExtractor enables table extraction.
func WithTableExtractor(t driven.TableExtractor) IngestionOption {
	return func(s *IngestionService) {
		s.tables = t
	}
}

// WithIngestionMetrics sets the metrics recorder.
func WithIngestionMetrics(m driven.MetricsRecorder) IngestionOption {
	return func(s *IngestionService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithDocumentIDFunc overrides document id generation.
func WithDocumentIDFunc(fn func() string) IngestionOption {
	return func(s *IngestionService) {
		s.newID = fn
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) IngestionOption {
	return func(s *IngestionService) {
		s.now = now
	}
}

// NewIngestionService creates the service. Call Start to launch workers.
func NewIngestionService(
	blobs driven.BlobStore,
	registry driven.DocumentRegistry,
	pages driven.PageExtractor,
	pipeline driven.ChunkPipeline,
	gateway *EmbeddingGateway,
	index driven.VectorIndex,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		blobs:     blobs,
		registry:  registry,
		pages:     pages,
		pipeline:  pipeline,
		gateway:   gateway,
		index:     index,
		metrics:   driven.NopMetrics{},
		workers:   domain.DefaultIngestWorkers,
		queueSize: domain.DefaultQueueSize,
		maxBytes:  domain.MaxUploadBytes,
		newID:     uuid.NewString,
		now:       time.Now,
		seen:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan string, s.queueSize)
	return s
}

// Start launches the worker pool. It is safe to call more than once.
func (s *IngestionService) Start() {
	s.started.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.worker(i)
		}
		logger.Debug("ingestion started with %d workers", s.workers)
	})
}

// Shutdown stops accepting documents and waits for queued ones to finish.
func (s *IngestionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	s.Start()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ingestion shutdown: %w", ctx.Err())
	}
}

// Submit validates and stores an upload, registers it as pending and
// enqueues it. It returns the document id without waiting for processing.
// If the document cannot be queued it is registered as failed.
func (s *IngestionService) Submit(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	if s.isClosed() {
		return "", domain.ErrQueueClosed
	}

	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	docType := domain.DocTypeFromFilename(name)
	if docType == domain.DocTypeUnknown {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, name)
	}
	if size > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrFileTooLarge, size, s.maxBytes)
	}

	// Read one byte past the limit so unknown sizes are still enforced.
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrFileTooLarge, s.maxBytes)
	}

	id := s.newID()
	key := id + "_" + name
	contentType := domain.ContentTypeFor(name)
	if _, err := s.blobs.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	raw := domain.RawDocument{
		ID:          id,
		Filename:    name,
		Path:        key,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  s.now().UTC(),
		DocType:     docType,
	}
	if err := s.registry.Put(ctx, s.emptyArtifacts(raw, domain.StatusPending, "")); err != nil {
		return "", fmt.Errorf("register document: %w", err)
	}

	if _, err := s.enqueue(ctx, id); err != nil {
		// The request context may already be done; the failed state must
		// still be recorded.
		failed := s.emptyArtifacts(raw, domain.StatusFailed, "not queued: "+err.Error())
		if putErr := s.registry.Put(context.WithoutCancel(ctx), failed); putErr != nil {
			logger.Error(putErr, "failed to record enqueue failure for %s", id)
		}
		return "", err
	}
	logger.Info("accepted %s as %s", name, id)
	return id, nil
}

// Resume dispatches registered documents that are still pending or were
// processing when a previous run stopped. It returns how many were queued.
func (s *IngestionService) Resume(ctx context.Context) (int, error) {
	docs, err := s.registry.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	queued := 0
	for _, d := range docs {
		if d.Status != domain.StatusPending && d.Status != domain.StatusProcessing {
			continue
		}
		ok, err := s.enqueue(ctx, d.DocumentID)
		if err != nil {
			return queued, err
		}
		if ok {
			queued++
		}
	}
	if queued > 0 {
		logger.Info("resumed %d unfinished document(s)", queued)
	}
	return queued, nil
}

func (s *IngestionService) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// enqueue dispatches id to the workers. It reports false without error for
// an id that was dispatched before. A failed send forgets the id so it can
// be dispatched again.
func (s *IngestionService) enqueue(ctx context.Context, id string) (bool, error) {
	s.seenMu.Lock()
	if _, dup := s.seen[id]; dup {
		s.seenMu.Unlock()
		logger.Debug("document %s already dispatched", id)
		return false, nil
	}
	s.seen[id] = struct{}{}
	s.seenMu.Unlock()

	if err := s.send(ctx, id); err != nil {
		s.seenMu.Lock()
		delete(s.seen, id)
		s.seenMu.Unlock()
		return false, err
	}
	return true, nil
}

func (s *IngestionService) send(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrQueueClosed
	}

	select {
	case s.queue <- id:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", id, ctx.Err())
	}
}

// Status returns counts for a document.
func (s *IngestionService) Status(ctx context.Context, id string) (*domain.DocumentSummary, error) {
	a, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := a.Summary()
	return &summary, nil
}

// Get returns the full artifacts for a document.
func (s *IngestionService) Get(ctx context.Context, id string) (*domain.DocumentArtifacts, error) {
	return s.registry.Get(ctx, id)
}

// List returns summaries of all registered documents.
func (s *IngestionService) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	return s.registry.List(ctx)
}

// Chunks returns a document's chunks, restricted to page when page > 0.
func (s *IngestionService) Chunks(ctx context.Context, id string, page int) ([]domain.Chunk, error) {
	a, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		return a.Chunks, nil
	}
	out := make([]domain.Chunk, 0)
	for _, c := range a.Chunks {
		if c.PageNumber == page {
			out = append(out, c)
		}
	}
	return out, nil
}

// Tables returns the tables extracted from a document.
func (s *IngestionService) Tables(ctx context.Context, id string) ([]domain.Table, error) {
	a, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Tables, nil
}

func (s *IngestionService) worker(n int) {
	defer s.wg.Done()
	for id := range s.queue {
		s.process(context.Background(), id)
	}
	logger.Debug("ingestion worker %d stopped", n)
}

// process runs the pipeline for one document and records the outcome.
func (s *IngestionService) process(ctx context.Context, id string) {
	existing, err := s.registry.Get(ctx, id)
	if err != nil {
		logger.Error(err, "ingest %s: load registry entry", id)
		return
	}
	raw := existing.Raw

	processing := s.emptyArtifacts(raw, domain.StatusProcessing, "")
	if err := s.registry.Put(ctx, processing); err != nil {
		logger.Error(err, "ingest %s: mark processing", id)
	}

	artifacts, err := s.run(ctx, raw)
	if err != nil {
		logger.Error(err, "ingest %s failed", id)
		artifacts = s.emptyArtifacts(raw, domain.StatusFailed, err.Error())
	}

	if err := s.registry.Put(ctx, artifacts); err != nil {
		logger.Error(err, "ingest %s: store artifacts", id)
	}
	s.metrics.DocumentIngested(artifacts.Status)
	s.metrics.IndexRows(s.index.Len())
}

func (s *IngestionService) run(ctx context.Context, raw domain.RawDocument) (*domain.DocumentArtifacts, error) {
	path, cleanup, err := s.localCopy(ctx, raw.Path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := s.pages.ExtractPages(ctx, raw, path)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}

	var tables []domain.Table
	if s.tables != nil {
		tables, err = s.tables.ExtractTables(ctx, raw, pages)
		if err != nil {
			logger.Warn("table extraction failed for %s, continuing without tables: %v", raw.ID, err)
			tables = nil
		}
	}
	markTablePages(pages, tables)
	blocks := BuildBlocks(raw, pages, tables)

	chunks, err := s.pipeline.Process(ctx, raw, pages)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.gateway.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	now := s.now().UTC()
	metas := make([]domain.IndexMetadata, len(chunks))
	records := make([]domain.EmbeddingRecord, len(chunks))
	for i, c := range chunks {
		metas[i] = domain.IndexMetadata{
			DocumentID: raw.ID,
			Filename:   raw.Filename,
			ChunkID:    c.ID,
			Page:       c.PageNumber,
			Text:       c.Text,
		}
		records[i] = domain.EmbeddingRecord{
			ChunkID:    c.ID,
			DocumentID: raw.ID,
			Vector:     vectors[i],
			Model:      s.gateway.ModelName(),
			Dim:        len(vectors[i]),
			CreatedAt:  now,
		}
	}
	if err := s.index.Add(ctx, vectors, metas); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	return &domain.DocumentArtifacts{
		Raw:         raw,
		Status:      domain.StatusReady,
		Pages:       pages,
		Blocks:      blocks,
		Chunks:      chunks,
		Embeddings:  records,
		Extractions: []domain.ExtractionResult{},
		Tables:      nonNilTables(tables),
		UpdatedAt:   now,
	}, nil
}

// localCopy returns a filesystem path for key, downloading to a temporary
// file when the blob store is not local.
func (s *IngestionService) localCopy(ctx context.Context, key string) (string, func(), error) {
	if local, ok := s.blobs.(driven.LocalBlobStore); ok {
		return local.LocalPath(key), func() {}, nil
	}

	rc, err := s.blobs.Download(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "docintel-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("copy %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

func (s *IngestionService) emptyArtifacts(
	raw domain.RawDocument,
	status domain.DocumentStatus,
	reason string,
) *domain.DocumentArtifacts {
	return &domain.DocumentArtifacts{
		Raw:         raw,
		Status:      status,
		Error:       reason,
		Pages:       []domain.Page{},
		Blocks:      []domain.Block{},
		Chunks:      []domain.Chunk{},
		Embeddings:  []domain.EmbeddingRecord{},
		Extractions: []domain.ExtractionResult{},
		Tables:      []domain.Table{},
		UpdatedAt:   s.now().UTC(),
	}
}

// BuildBlocks creates one table block per table and one text block per
// non-empty page. Images yield a single image block.
func BuildBlocks(raw domain.RawDocument, pages []domain.Page, tables []domain.Table) []domain.Block {
	blocks := make([]domain.Block, 0, len(pages)+len(tables))
	for _, t := range tables {
		blocks = append(blocks, domain.Block{
			ID:         fmt.Sprintf("table_%d_%d", t.Page, t.TableIndex),
			PageNumber: t.Page,
			Type:       domain.BlockTable,
			Text:       t.Text,
			Metadata:   map[string]any{"table_data": t.Data},
		})
	}

	prefix := "text"
	if raw.DocType == domain.DocTypeImage {
		prefix = "image"
	}
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		blocks = append(blocks, domain.Block{
			ID:         fmt.Sprintf("%s_%d", prefix, p.PageNumber),
			PageNumber: p.PageNumber,
			Type:       domain.BlockText,
			Text:       p.Text,
		})
	}
	return blocks
}

func markTablePages(pages []domain.Page, tables []domain.Table) {
	for _, t := range tables {
		if t.Page >= 1 && t.Page <= len(pages) {
			pages[t.Page-1].HasTables = true
		}
	}
}

func nonNilTables(t []domain.Table) []domain.Table {
	if t == nil {
		return []domain.Table{}
	}
	return t
}
