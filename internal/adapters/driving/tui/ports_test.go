package tui

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

// MockQueryService implements driving.QueryService for testing.
type MockQueryService struct {
	AskFunc func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

func (m *MockQueryService) Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, req)
	}
	return &domain.QueryResponse{Question: req.Question, Answer: "answer"}, nil
}

func (m *MockQueryService) Schemas() []string {
	return nil
}

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	ListFunc func(ctx context.Context) ([]domain.DocumentSummary, error)
	GetFunc  func(ctx context.Context, id string) (*domain.DocumentArtifacts, error)
}

func (m *MockDocumentService) Submit(context.Context, string, io.Reader, int64) (string, error) {
	return "", nil
}

func (m *MockDocumentService) Status(context.Context, string) (*domain.DocumentSummary, error) {
	return nil, domain.ErrNotFound
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*domain.DocumentArtifacts, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockDocumentService) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockDocumentService) Chunks(context.Context, string, int) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *MockDocumentService) Tables(context.Context, string) ([]domain.Table, error) {
	return nil, nil
}

var (
	_ driving.QueryService    = (*MockQueryService)(nil)
	_ driving.DocumentService = (*MockDocumentService)(nil)
)

func TestNewPorts(t *testing.T) {
	query := &MockQueryService{}
	docs := &MockDocumentService{}

	ports := NewPorts(query, docs)

	assert.Equal(t, query, ports.Query)
	assert.Equal(t, docs, ports.Documents)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{"all set", NewPorts(&MockQueryService{}, &MockDocumentService{}), nil},
		{"documents optional", NewPorts(&MockQueryService{}, nil), nil},
		{"missing query", NewPorts(nil, &MockDocumentService{}), ErrMissingQueryService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
