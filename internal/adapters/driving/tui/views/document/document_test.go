package document

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docintel/internal/core/domain"
)

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	GetFunc func(ctx context.Context, id string) (*domain.DocumentArtifacts, error)
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

func (m *MockDocumentService) List(context.Context) ([]domain.DocumentSummary, error) {
	return nil, nil
}

func (m *MockDocumentService) Chunks(context.Context, string, int) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *MockDocumentService) Tables(context.Context, string) ([]domain.Table, error) {
	return nil, nil
}

func testArtifacts(pages int) *domain.DocumentArtifacts {
	a := &domain.DocumentArtifacts{
		Raw:    domain.RawDocument{ID: "doc-1", Filename: "report.pdf"},
		Status: domain.StatusReady,
	}
	for i := pages; i >= 1; i-- {
		a.Pages = append(a.Pages, domain.Page{
			PageNumber:       i,
			Text:             strings.Repeat("line of page text\n", 10),
			ExtractionMethod: domain.ExtractionText,
		})
	}
	a.Tables = []domain.Table{{
		Page: 2, TableIndex: 0, Rows: 2, Columns: 2,
		Data: [][]string{{"Item", "Cost"}, {"Widget", "$10"}},
	}}
	return a
}

func openedView(t *testing.T, page int) *View {
	t.Helper()
	mock := &MockDocumentService{
		GetFunc: func(context.Context, string) (*domain.DocumentArtifacts, error) {
			return testArtifacts(3), nil
		},
	}
	view := NewView(nil, mock)
	view.SetDimensions(80, 20)
	cmd := view.Open("doc-1", page)
	require.NotNil(t, cmd)
	view.Update(cmd())
	require.NoError(t, view.Err())
	return view
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Nil(t, view.Init())
}

func TestView_Open_NoService(t *testing.T) {
	view := NewView(nil, nil)

	msg, ok := view.Open("doc-1", 0)().(messages.DocumentLoaded)

	require.True(t, ok)
	assert.ErrorIs(t, msg.Err, ErrNoDocumentService)
	assert.True(t, view.IsLoading())
}

func TestView_Open_NotFound(t *testing.T) {
	view := NewView(nil, &MockDocumentService{})

	view.Update(view.Open("missing", 0)())

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
	assert.False(t, view.IsLoading())
	assert.Contains(t, view.View(), "not found")
}

func TestView_Update_IgnoresStaleLoad(t *testing.T) {
	view := NewView(nil, &MockDocumentService{})
	view.Open("doc-2", 0)

	view.Update(messages.DocumentLoaded{DocumentID: "doc-1", Artifacts: testArtifacts(1)})

	assert.Nil(t, view.Artifacts())
	assert.True(t, view.IsLoading())
}

func TestView_Layout_OrdersPagesAndTables(t *testing.T) {
	view := openedView(t, 0)

	lines := view.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "--- Page 1 (text) ---", lines[0])

	joined := strings.Join(lines, "\n")
	assert.Less(t, strings.Index(joined, "--- Page 1"), strings.Index(joined, "--- Page 2"))
	assert.Less(t, strings.Index(joined, "--- Page 2"), strings.Index(joined, "[table 0: 2x2]"))
	assert.Less(t, strings.Index(joined, "[table 0: 2x2]"), strings.Index(joined, "--- Page 3"))
	assert.Contains(t, joined, "Widget | $10")
}

func TestView_Open_ScrollsToPage(t *testing.T) {
	view := openedView(t, 2)

	assert.Equal(t, "--- Page 2 (text) ---", view.Lines()[view.ScrollOffset()])
	assert.Equal(t, 2, view.CurrentPage())
}

func TestView_Open_UnknownPageStartsAtTop(t *testing.T) {
	view := openedView(t, 9)

	assert.Equal(t, 0, view.ScrollOffset())
	assert.Equal(t, 1, view.CurrentPage())
}

func TestView_PageNavigation(t *testing.T) {
	view := openedView(t, 0)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{']'}})
	assert.Equal(t, 2, view.CurrentPage())

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'['}})
	assert.Equal(t, 1, view.CurrentPage())
}

func TestView_Scrolling(t *testing.T) {
	view := openedView(t, 0)

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.ScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.ScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, view.maxScrollOffset(), view.ScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, view.ScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, view.visibleLines(), view.ScrollOffset())
}

func TestView_Esc(t *testing.T) {
	view := NewView(nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	changed, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewDocuments, changed.View)
}

func TestView_Esc_ReturnView(t *testing.T) {
	view := NewView(nil, nil)
	view.SetReturnView(messages.ViewAsk)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewAsk}, cmd())
}

func TestView_WrapsLongLines(t *testing.T) {
	view := NewView(nil, nil)
	view.SetDimensions(30, 20)
	view.documentID = "doc-1"
	a := &domain.DocumentArtifacts{
		Raw:   domain.RawDocument{ID: "doc-1", Filename: "long.txt"},
		Pages: []domain.Page{{PageNumber: 1, Text: strings.Repeat("é", 60)}},
	}

	view.Update(messages.DocumentLoaded{DocumentID: "doc-1", Artifacts: a})

	require.Len(t, view.Lines(), 5)
	assert.Equal(t, 26, len([]rune(view.Lines()[1])))
}

func TestView_View_Header(t *testing.T) {
	view := openedView(t, 0)

	out := view.View()

	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "3 pages")
	assert.Contains(t, out, "1 tables")
	assert.Contains(t, out, "page 1 | line 1-")
}

func TestView_View_Failed(t *testing.T) {
	view := NewView(nil, nil)
	view.documentID = "doc-1"
	view.Update(messages.DocumentLoaded{
		DocumentID: "doc-1",
		Artifacts:  &domain.DocumentArtifacts{Status: domain.StatusFailed, Error: "unsupported type"},
	})

	assert.Contains(t, view.View(), "Processing failed: unsupported type")
}

func TestView_View_ErrorOccurred(t *testing.T) {
	view := NewView(nil, nil)

	view.Update(messages.ErrorOccurred{Err: errors.New("disk gone")})

	assert.Contains(t, view.View(), "disk gone")
}
