package mcp

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

func newTestServer(t *testing.T, q *mockQueryService, d *mockDocumentService, e *mockEvaluationService) *Server {
	t.Helper()
	ports := &Ports{Query: q}
	if d != nil {
		ports.Documents = d
	}
	if e != nil {
		ports.Evaluation = e
	}
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("maps input to request", func(t *testing.T) {
		q := &mockQueryService{response: &domain.QueryResponse{
			Question:   "What is due?",
			Answer:     "Payment within 30 days.",
			Citations:  []domain.Citation{{DocumentID: "d1", Page: 2}},
			Confidence: 0.8,
		}}
		server := newTestServer(t, q, nil, nil)

		_, out, err := server.handleAsk(ctx, nil, AskInput{
			Question: "What is due?",
			TopK:     3,
			DocIDs:   []string{"d1"},
			Schema:   "DocumentSummary",
		})

		require.NoError(t, err)
		assert.Equal(t, "Payment within 30 days.", out.Answer)
		assert.Len(t, out.Citations, 1)
		assert.Equal(t, 3, q.lastReq.TopK)
		assert.Equal(t, []string{"d1"}, q.lastReq.DocumentIDs)
		assert.True(t, q.lastReq.UseLLM)
		assert.Equal(t, "DocumentSummary", q.lastReq.Schema)
	})

	t.Run("default top_k and no_llm", func(t *testing.T) {
		q := &mockQueryService{}
		server := newTestServer(t, q, nil, nil)

		_, _, err := server.handleAsk(ctx, nil, AskInput{Question: "x", NoLLM: true})

		require.NoError(t, err)
		assert.Equal(t, domain.DefaultTopK, q.lastReq.TopK)
		assert.False(t, q.lastReq.UseLLM)
	})

	t.Run("propagates invalid request", func(t *testing.T) {
		q := &mockQueryService{err: domain.ErrInvalidInput}
		server := newTestServer(t, q, nil, nil)

		_, _, err := server.handleAsk(ctx, nil, AskInput{})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes and submits", func(t *testing.T) {
		docs := &mockDocumentService{}
		server := newTestServer(t, &mockQueryService{}, docs, nil)

		_, out, err := server.handleSubmit(ctx, nil, SubmitInput{
			Filename: "report.pdf",
			Content:  base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
		})

		require.NoError(t, err)
		assert.Equal(t, "doc-new", out.DocumentID)
		assert.Equal(t, "pending", out.Status)
		assert.Equal(t, "report.pdf", docs.filename)
		assert.Equal(t, []byte("%PDF-1.4"), docs.submitted)
	})

	t.Run("rejects bad base64", func(t *testing.T) {
		server := newTestServer(t, &mockQueryService{}, &mockDocumentService{}, nil)

		_, _, err := server.handleSubmit(ctx, nil, SubmitInput{Filename: "a.pdf", Content: "!!!"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("propagates service error", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrUnsupportedType}
		server := newTestServer(t, &mockQueryService{}, docs, nil)

		_, _, err := server.handleSubmit(ctx, nil, SubmitInput{
			Filename: "a.docx",
			Content:  base64.StdEncoding.EncodeToString([]byte("x")),
		})

		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})
}

func TestServer_handleStatus(t *testing.T) {
	ctx := context.Background()
	uploaded := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := &mockDocumentService{summaries: []domain.DocumentSummary{{
		DocumentID:       "d1",
		Filename:         "a.pdf",
		Status:           domain.StatusReady,
		Pages:            3,
		Chunks:           7,
		ExtractionMethod: domain.ExtractionHybrid,
		UploadedAt:       uploaded,
	}}}
	server := newTestServer(t, &mockQueryService{}, docs, nil)

	t.Run("found", func(t *testing.T) {
		_, out, err := server.handleStatus(ctx, nil, DocumentIDInput{DocumentID: "d1"})

		require.NoError(t, err)
		assert.Equal(t, "ready", out.Status)
		assert.Equal(t, 3, out.Pages)
		assert.Equal(t, 7, out.Chunks)
		assert.Equal(t, "hybrid", out.ExtractionMethod)
		assert.Equal(t, "2025-03-01T12:00:00Z", out.UploadedAt)
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := server.handleStatus(ctx, nil, DocumentIDInput{DocumentID: "missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, _, err := server.handleStatus(ctx, nil, DocumentIDInput{})
		assert.Error(t, err)
	})
}

func TestServer_handleListDocuments(t *testing.T) {
	docs := &mockDocumentService{summaries: []domain.DocumentSummary{
		{DocumentID: "d1", Status: domain.StatusReady},
		{DocumentID: "d2", Status: domain.StatusFailed, Error: "no text"},
	}}
	server := newTestServer(t, &mockQueryService{}, docs, nil)

	_, out, err := server.handleListDocuments(context.Background(), nil, ListDocumentsInput{})

	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "d2", out.Documents[1].DocumentID)
	assert.Equal(t, "no text", out.Documents[1].Error)
}

func TestServer_handleEvaluate(t *testing.T) {
	eval := &mockEvaluationService{result: domain.EvaluationResult{Passed: true, OverallScore: 0.9}}
	server := newTestServer(t, &mockQueryService{}, nil, eval)

	_, out, err := server.handleEvaluate(context.Background(), nil, EvaluateInput{
		Answer:    "Payment is due within 30 days.",
		Citations: []CitationInput{{DocumentID: "d1", Page: 2}},
		Evidence:  []EvidenceInput{{DocumentID: "d1", Page: 2, Text: "Payment is due within 30 days."}},
	})

	require.NoError(t, err)
	assert.True(t, out.Passed)
	assert.Equal(t, 0.9, out.OverallScore)
	require.Len(t, eval.lastInput.Evidence, 1)
	assert.Equal(t, "Payment is due within 30 days.", eval.lastInput.Evidence[0].Text)
	assert.Equal(t, "d1", eval.lastInput.Citations[0].DocumentID)
}
