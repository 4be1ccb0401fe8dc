// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Turns text into fixed-dimension vectors
//   - VectorIndex: Append-only cosine similarity index
//   - DocumentRegistry: Per-document artifacts keyed by id
//   - BlobStore: Uploaded file storage (local disk or S3)
//   - PageExtractor / TableExtractor: Text and table extraction
//   - ChunkPipeline: Pages to chunks
//   - SchemaRegistry: Named response schemas
//   - ConfigStore / PromptStore: Configuration and prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Without it, answers are the concatenated top evidence.
//   - EmbeddingCache: Without it, every text is embedded by the provider.
//   - MetricsRecorder: Without it, nothing is recorded.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
