package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, DefaultBaseURL, s.baseURL)
}

func TestEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)

		resp := embedResponse{}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL + "/", Dimensions: 2})
	vectors, err := s.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{2, 1}, vectors[2])

	v, err := s.Embed(context.Background(), "single")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, v)
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL})
	_, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbedBatch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL})
	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL})
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
