// Package domain defines the core business entities for docintel.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: An uploaded file and its metadata
//   - Page, Block, Table: Extraction output for one document
//   - Chunk: An embeddable, page-tagged slice of text
//   - IndexMetadata, SearchHit: Rows of the vector index
//   - QueryResponse, Citation, EvidenceItem: Grounded answers
//   - EvaluationResult: Quality gate verdict for an answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
