package domain

// IndexMetadata is the denormalised row payload stored alongside each vector.
// It is copied into the index and never shared with registry state.
type IndexMetadata struct {
	DocumentID string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkID    string `json:"chunk_id"`
	Page       int    `json:"page"`
	Text       string `json:"text"`
}

// SearchHit is one ranked row returned by a vector search.
type SearchHit struct {
	// Row is the 0-based append position of the matched vector.
	Row int `json:"row"`

	// Metadata is a copy of the row metadata.
	Metadata IndexMetadata `json:"metadata"`

	// Score is the cosine similarity to the query, in [-1, 1].
	Score float64 `json:"score"`
}
