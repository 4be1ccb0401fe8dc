// Package sqlite provides the SQLite-backed document registry.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Each registry entry is a documents row plus child rows for
// pages, blocks, chunks, embeddings, tables and extractions. Put replaces all
// child rows of a document in one transaction.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.docintel/registry.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode
// with a busy timeout.
package sqlite
