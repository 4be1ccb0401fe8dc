package cli

import (
	"context"
	"io"
	"time"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

// mockDocumentService implements driving.DocumentService for CLI tests.
type mockDocumentService struct {
	submitted map[string]string
	statuses  []domain.DocumentStatus
	statusErr error
	listErr   error
}

func (m *mockDocumentService) Submit(_ context.Context, filename string, r io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.submitted == nil {
		m.submitted = map[string]string{}
	}
	m.submitted[filename] = string(data)
	return "doc-1", nil
}

func (m *mockDocumentService) Status(_ context.Context, id string) (*domain.DocumentSummary, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	if id != "doc-1" {
		return nil, domain.ErrNotFound
	}
	status := domain.StatusReady
	if len(m.statuses) > 0 {
		status = m.statuses[0]
		if len(m.statuses) > 1 {
			m.statuses = m.statuses[1:]
		}
	}
	s := testSummary()
	s.Status = status
	if status == domain.StatusFailed {
		s.Error = "unsupported content"
	}
	return &s, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.DocumentArtifacts, error) {
	if id != "doc-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.DocumentArtifacts{Raw: domain.RawDocument{ID: id, Filename: "invoice.pdf"}, Status: domain.StatusReady}, nil
}

func (m *mockDocumentService) List(context.Context) ([]domain.DocumentSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return []domain.DocumentSummary{testSummary()}, nil
}

func (m *mockDocumentService) Chunks(_ context.Context, id string, page int) ([]domain.Chunk, error) {
	if id != "doc-1" {
		return nil, domain.ErrNotFound
	}
	chunks := []domain.Chunk{
		{ID: "c1", DocumentID: id, PageNumber: 1, Text: "Invoice number 42", CharCount: 17},
		{ID: "c2", DocumentID: id, PageNumber: 2, Text: "Total: $1,200", CharCount: 13},
	}
	if page <= 0 {
		return chunks, nil
	}
	var out []domain.Chunk
	for _, c := range chunks {
		if c.PageNumber == page {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockDocumentService) Tables(_ context.Context, id string) ([]domain.Table, error) {
	if id != "doc-1" {
		return nil, domain.ErrNotFound
	}
	data := [][]string{{"Item", "Cost"}, {"Widget", "$10"}}
	return []domain.Table{{Page: 2, TableIndex: 0, Rows: 2, Columns: 2, Data: data, Text: domain.TableText(data)}}, nil
}

func testSummary() domain.DocumentSummary {
	return domain.DocumentSummary{
		DocumentID:       "doc-1",
		Filename:         "invoice.pdf",
		Status:           domain.StatusReady,
		Pages:            2,
		Chunks:           2,
		Blocks:           3,
		Embeddings:       2,
		Tables:           1,
		ExtractionMethod: domain.ExtractionText,
		UploadedAt:       time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

// mockQueryService implements driving.QueryService for CLI tests.
type mockQueryService struct {
	last domain.QueryRequest
	resp *domain.QueryResponse
	err  error
}

func (m *mockQueryService) Ask(_ context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	score := 0.91
	return &domain.QueryResponse{
		Question:   req.Question,
		Answer:     "The total is $1,200 [1].",
		Citations:  []domain.Citation{{DocumentID: "doc-1", Filename: "invoice.pdf", Page: 2, Score: &score}},
		Evidence:   []domain.EvidenceItem{{DocumentID: "doc-1", Filename: "invoice.pdf", Page: 2, Score: score}},
		Confidence: 0.8,
		Evaluation: &domain.EvaluationResult{Passed: true, OverallScore: 0.9},
	}, nil
}

func (m *mockQueryService) Schemas() []string {
	return []string{"invoice", "contract"}
}

// mockEvaluationService implements driving.EvaluationService for CLI tests.
type mockEvaluationService struct {
	cases []domain.EvaluationCase
}

func (m *mockEvaluationService) Evaluate(context.Context, domain.EvaluationInput) domain.EvaluationResult {
	return domain.EvaluationResult{Passed: true, OverallScore: 1}
}

// EvaluateCases passes a case exactly when its answer is non-empty.
func (m *mockEvaluationService) EvaluateCases(_ context.Context, cases []domain.EvaluationCase) []domain.CaseOutcome {
	m.cases = cases
	out := make([]domain.CaseOutcome, 0, len(cases))
	for _, c := range cases {
		passed := c.Input.Answer != ""
		result := domain.EvaluationResult{Passed: passed, OverallScore: 0.9}
		if !passed {
			result = domain.FailedEvaluation("empty answer")
		}
		out = append(out, domain.CaseOutcome{
			Name:    c.Name,
			Result:  result,
			Matched: c.ExpectPass == nil || *c.ExpectPass == passed,
		})
	}
	return out
}

// mockSettingsService implements driving.SettingsService for CLI tests.
type mockSettingsService struct {
	settings domain.AppSettings
	sets     map[string]string
	setErr   error
	pingErr  error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.sets == nil {
		m.sets = map[string]string{}
	}
	m.sets[key] = value
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.pingErr }

var (
	_ driving.DocumentService   = (*mockDocumentService)(nil)
	_ driving.QueryService      = (*mockQueryService)(nil)
	_ driving.EvaluationService = (*mockEvaluationService)(nil)
	_ driving.SettingsService   = (*mockSettingsService)(nil)
)

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	documents  *mockDocumentService
	query      *mockQueryService
	evaluation *mockEvaluationService
	settings   *mockSettingsService
}

// setupTestServices installs fresh mocks and resets command flags. The
// returned cleanup clears them again.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		documents:  &mockDocumentService{},
		query:      &mockQueryService{},
		evaluation: &mockEvaluationService{},
		settings:   &mockSettingsService{settings: domain.DefaultAppSettings()},
	}
	resetFlags()
	SetServices(&Services{
		Documents:  ts.documents,
		Query:      ts.query,
		Evaluation: ts.evaluation,
		Settings:   ts.settings,
	})
	return ts, func() {
		SetServices(nil)
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

func resetFlags() {
	documentJSON = false
	submitWait = false
	chunksPage = 0
	askTopK = domain.DefaultTopK
	askDocs = nil
	askNoLLM = false
	askSchema = ""
	askJSON = false
	evaluateJSON = false
	watchExisting = false
}
