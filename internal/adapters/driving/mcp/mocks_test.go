package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	response *domain.QueryResponse
	err      error
	schemas  []string
	lastReq  domain.QueryRequest
}

func (m *mockQueryService) Ask(_ context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.response != nil {
		return m.response, nil
	}
	return &domain.QueryResponse{Question: req.Question, Answer: domain.NoEvidenceAnswer}, nil
}

func (m *mockQueryService) Schemas() []string {
	return m.schemas
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	summaries []domain.DocumentSummary
	artifacts *domain.DocumentArtifacts
	submitted []byte
	filename  string
	err       error
}

func (m *mockDocumentService) Submit(_ context.Context, filename string, r io.Reader, _ int64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.filename = filename
	m.submitted = data
	return "doc-new", nil
}

func (m *mockDocumentService) Status(_ context.Context, id string) (*domain.DocumentSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.summaries {
		if m.summaries[i].DocumentID == id {
			return &m.summaries[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.DocumentArtifacts, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.artifacts == nil {
		return nil, domain.ErrNotFound
	}
	return m.artifacts, nil
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.summaries, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string, _ int) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockDocumentService) Tables(_ context.Context, _ string) ([]domain.Table, error) {
	return nil, m.err
}

// mockEvaluationService is a mock implementation of driving.EvaluationService.
type mockEvaluationService struct {
	lastInput domain.EvaluationInput
	result    domain.EvaluationResult
}

func (m *mockEvaluationService) Evaluate(_ context.Context, input domain.EvaluationInput) domain.EvaluationResult {
	m.lastInput = input
	return m.result
}

func (m *mockEvaluationService) EvaluateCases(ctx context.Context, cases []domain.EvaluationCase) []domain.CaseOutcome {
	out := make([]domain.CaseOutcome, len(cases))
	for i, c := range cases {
		out[i] = domain.CaseOutcome{Name: c.Name, Result: m.Evaluate(ctx, c.Input), Matched: true}
	}
	return out
}
