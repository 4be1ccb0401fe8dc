// Package flat provides an exact, brute-force cosine similarity index.
//
// Vectors are L2-normalised on insert and scored by inner product, so the
// score of a hit is its cosine similarity to the query. Rows are persisted
// through a driven.IndexPersister before they become visible to searches.
package flat
