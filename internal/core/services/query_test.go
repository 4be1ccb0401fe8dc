package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

type queryFixture struct {
	svc     *QueryService
	index   *flat.Index
	llm     *mockLLMService
	metrics *mockMetrics
}

func setupTestQueryService(t *testing.T, llm *mockLLMService) *queryFixture {
	t.Helper()
	idx, err := flat.New(4, nil)
	require.NoError(t, err)

	metrics := &mockMetrics{}
	reg := &mockSchemaRegistry{}
	gateway := NewEmbeddingGateway(&mockEmbeddingService{vectorFor: axisVector}, 4)

	var synth *Synthesizer
	if llm != nil {
		synth = NewSynthesizer(llm, WithSchemaRegistry(reg), WithSynthesizerMetrics(metrics))
	} else {
		synth = NewSynthesizer(nil, WithSchemaRegistry(reg), WithSynthesizerMetrics(metrics))
	}

	svc := NewQueryService(
		NewRetriever(gateway, idx, domain.DefaultOverfetch),
		synth,
		NewEvaluationService(reg, metrics),
		reg,
		metrics,
	)
	return &queryFixture{svc: svc, index: idx, llm: llm, metrics: metrics}
}

func TestQueryService_EmptyQuestion(t *testing.T) {
	f := setupTestQueryService(t, nil)

	_, err := f.svc.Ask(context.Background(), domain.QueryRequest{Question: "  "})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, []string{driven.OutcomeRejected}, f.metrics.queries)
}

func TestQueryService_UnknownSchema(t *testing.T) {
	f := setupTestQueryService(t, nil)

	_, err := f.svc.Ask(context.Background(), domain.QueryRequest{Question: "q", Schema: "Missing"})

	assert.ErrorIs(t, err, domain.ErrUnknownSchema)
}

func TestQueryService_EmptyIndex(t *testing.T) {
	f := setupTestQueryService(t, nil)

	resp, err := f.svc.Ask(context.Background(), domain.QueryRequest{Question: "anything", TopK: 5})

	require.NoError(t, err)
	assert.Equal(t, domain.NoEvidenceAnswer, resp.Answer)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Empty(t, resp.Citations)
	assert.Empty(t, resp.Evidence)
	require.NotNil(t, resp.Evaluation)
	assert.Equal(t, []string{driven.OutcomeNoEvidence}, f.metrics.queries)
}

func TestQueryService_AnswersFromEvidence(t *testing.T) {
	llm := &mockLLMService{response: "Revenue declined 10% [Page 1]."}
	f := setupTestQueryService(t, llm)
	addRows(t, f.index, "d1", []float32{1, 0, 0, 0}, []float32{0, 1, 0, 0})

	resp, err := f.svc.Ask(context.Background(), domain.QueryRequest{Question: "apple", UseLLM: true})

	require.NoError(t, err)
	assert.Equal(t, "Revenue declined 10% [Page 1].", resp.Answer)
	assert.Len(t, resp.Citations, 2)
	assert.Equal(t, "d1_chunk_0", resp.Citations[0].ChunkID)
	assert.Equal(t, resp.Citations[0].ChunkID, resp.Evidence[0].ChunkID)
	assert.InDelta(t, 0.5, resp.Confidence, 1e-6)
	assert.Empty(t, resp.Warnings)
	require.NotNil(t, resp.Evaluation)
	assert.Equal(t, 1, llm.callCount())
}

func TestQueryService_UseLLMFalse(t *testing.T) {
	llm := &mockLLMService{response: "unused"}
	f := setupTestQueryService(t, llm)
	addRows(t, f.index, "d1", []float32{1, 0, 0, 0})

	resp, err := f.svc.Ask(context.Background(), domain.QueryRequest{Question: "apple"})

	require.NoError(t, err)
	assert.Equal(t, "[Page 1] text", resp.Answer)
	assert.Equal(t, 0, llm.callCount())
}

func TestQueryService_DocumentFilter(t *testing.T) {
	f := setupTestQueryService(t, nil)
	addRows(t, f.index, "d1", []float32{1, 0, 0, 0})
	addRows(t, f.index, "d2", []float32{0.5, 0.5, 0, 0})

	resp, err := f.svc.Ask(context.Background(), domain.QueryRequest{
		Question:    "apple",
		DocumentIDs: []string{"d2"},
	})

	require.NoError(t, err)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "d2", resp.Citations[0].DocumentID)
}

func TestQueryService_RetrievalFailureDegrades(t *testing.T) {
	idx, err := flat.New(4, nil)
	require.NoError(t, err)
	addRows(t, idx, "d1", []float32{1, 0, 0, 0})
	gateway := NewEmbeddingGateway(&mockEmbeddingService{embedErr: domain.ErrEmbeddingUnavailable}, 4)
	svc := NewQueryService(NewRetriever(gateway, idx, 4), NewSynthesizer(nil), nil, nil, nil)

	resp, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "apple"})

	require.NoError(t, err)
	assert.Equal(t, domain.NoEvidenceAnswer, resp.Answer)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "retrieval failed")
	assert.Nil(t, resp.Evaluation)
}

func TestQueryService_StructuredResponse(t *testing.T) {
	llm := &mockLLMService{response: `{"summary": "Revenue declined"}`}
	f := setupTestQueryService(t, llm)
	addRows(t, f.index, "d1", []float32{1, 0, 0, 0})

	resp, err := f.svc.Ask(context.Background(), domain.QueryRequest{
		Question: "apple",
		UseLLM:   true,
		Schema:   mockSchemaName,
	})

	require.NoError(t, err)
	assert.Equal(t, "Revenue declined", resp.Structured["summary"])
	assert.False(t, resp.NonConformant)
	require.NotNil(t, resp.Evaluation)
	assert.True(t, resp.Evaluation.Schema.Valid)
	assert.Equal(t, mockSchemaName, resp.Evaluation.Schema.Schema)
}

func TestQueryService_StructuredFallbackFailsSchema(t *testing.T) {
	f := setupTestQueryService(t, nil)
	addRows(t, f.index, "d1", []float32{1, 0, 0, 0})

	resp, err := f.svc.Ask(context.Background(), domain.QueryRequest{
		Question: "apple",
		UseLLM:   true,
		Schema:   mockSchemaName,
	})

	require.NoError(t, err)
	assert.Nil(t, resp.Structured)
	require.NotNil(t, resp.Evaluation)
	assert.False(t, resp.Evaluation.Schema.Valid)
	assert.NotEmpty(t, resp.Warnings)
}

func TestQueryService_Schemas(t *testing.T) {
	f := setupTestQueryService(t, nil)
	assert.Equal(t, []string{mockSchemaName}, f.svc.Schemas())

	bare := NewQueryService(nil, nil, nil, nil, nil)
	assert.Nil(t, bare.Schemas())
}
