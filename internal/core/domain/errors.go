package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type the pipeline cannot ingest.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrFileTooLarge indicates an upload above the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answers fall back to concatenated evidence.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates a provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Index Errors.

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrLengthMismatch indicates vectors and metadata of different lengths.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrCorruptIndex indicates persisted vectors and metadata are not row-aligned.
	ErrCorruptIndex = errors.New("corrupt index on load")

	// ErrUnknownSchema indicates a response schema name with no registered descriptor.
	ErrUnknownSchema = errors.New("unknown schema")

	// ErrQueueClosed indicates the ingestion queue no longer accepts work.
	ErrQueueClosed = errors.New("ingestion queue closed")
)
