package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)
}

func TestGenerate_JSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"a\":1}"}}]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(Config{APIKey: "sk", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := s.Generate(context.Background(), "p", driven.GenerateOptions{JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestGenerate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(Config{APIKey: "sk", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
