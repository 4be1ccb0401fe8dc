// Package documents lists registered documents and their ingestion state.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

// ErrNoDocumentService indicates the view was built without a document service.
var ErrNoDocumentService = errors.New("document service not available")

// chromeLines is the height taken by title, column header, footer and gaps.
const chromeLines = 8

var keys = keymap.DefaultKeyMap()

// action is one entry of the per-document menu. A nil emit closes the menu.
type action struct {
	label string
	emit  func(doc domain.DocumentSummary) tea.Msg
}

var actions = []action{
	{"Show Content", func(doc domain.DocumentSummary) tea.Msg {
		return messages.DocumentSelected{DocumentID: doc.DocumentID}
	}},
	{"Ask About This Document", func(doc domain.DocumentSummary) tea.Msg {
		return messages.ScopeChanged{DocumentIDs: []string{doc.DocumentID}}
	}},
	{"Cancel", nil},
}

// View lists registered documents with their processing status.
type View struct {
	styles  *styles.Styles
	service driving.DocumentService
	ctx     context.Context

	documents []domain.DocumentSummary
	cursor    int
	offset    int

	menuOpen   bool
	menuCursor int

	width, height int
	loading       bool
	err           error
}

// NewView creates a documents view. A nil s uses the default styles.
func NewView(s *styles.Styles, service driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		service:   service,
		ctx:       context.Background(),
		documents: []domain.DocumentSummary{},
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load resets the cursor and returns a command that lists documents.
func (v *View) Load() tea.Cmd {
	v.cursor, v.offset = 0, 0
	v.menuOpen = false
	v.err = nil
	return v.fetch()
}

func (v *View) fetch() tea.Cmd {
	v.loading = true
	service, ctx := v.service, v.ctx
	return func() tea.Msg {
		if service == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		docs, err := service.List(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		if v.menuOpen {
			return v, v.menuKey(msg.String())
		}
		return v, v.listKey(msg.String())
	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.documents = msg.Documents
			v.clampCursor()
		}
	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) listKey(k string) tea.Cmd {
	switch {
	case keymap.Matches(k, keys.Up):
		v.moveTo(v.cursor - 1)
	case keymap.Matches(k, keys.Down):
		v.moveTo(v.cursor + 1)
	case keymap.Matches(k, keys.Top):
		v.moveTo(0)
	case keymap.Matches(k, keys.Bottom):
		v.moveTo(len(v.documents) - 1)
	case keymap.Matches(k, keys.Actions):
		if len(v.documents) > 0 {
			v.menuOpen = true
			v.menuCursor = 0
		}
	case keymap.Matches(k, keys.Reload):
		return v.fetch()
	case keymap.Matches(k, keys.Back):
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	}
	return nil
}

func (v *View) menuKey(k string) tea.Cmd {
	switch {
	case keymap.Matches(k, keys.Up):
		v.menuCursor = max(v.menuCursor-1, 0)
	case keymap.Matches(k, keys.Down):
		v.menuCursor = min(v.menuCursor+1, len(actions)-1)
	case keymap.Matches(k, keys.Cancel):
		v.menuOpen = false
	case keymap.Matches(k, keys.Select):
		v.menuOpen = false
		doc := v.SelectedDocument()
		emit := actions[v.menuCursor].emit
		if doc == nil || emit == nil {
			return nil
		}
		selected := *doc
		return func() tea.Msg { return emit(selected) }
	}
	return nil
}

// moveTo places the cursor at i, clamped to the list, and keeps it visible.
func (v *View) moveTo(i int) {
	if len(v.documents) == 0 {
		return
	}
	v.cursor = max(0, min(i, len(v.documents)-1))
	rows := v.rows()
	if v.cursor < v.offset {
		v.offset = v.cursor
	} else if v.cursor >= v.offset+rows {
		v.offset = v.cursor - rows + 1
	}
}

func (v *View) clampCursor() {
	if v.cursor >= len(v.documents) {
		v.cursor, v.offset = 0, 0
	}
}

func (v *View) rows() int {
	return max(v.height-chromeLines, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents submitted yet. Use 'docintel document submit <file>'."))
	case v.menuOpen:
		return b.String() + v.renderMenu()
	default:
		v.renderTable(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine([]key.Binding{keys.Up, keys.Down, keys.Actions, keys.Reload, keys.Back})))
	return b.String()
}

func (v *View) nameWidth() int {
	return max(v.width/2-4, 10)
}

func (v *View) renderTable(b *strings.Builder) {
	w := v.nameWidth()
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %-*s  %s", w, "NAME", "STATUS")))
	b.WriteString("\n")

	rows := v.rows()
	end := min(v.offset+rows, len(v.documents))
	for i := v.offset; i < end; i++ {
		b.WriteString(v.renderRow(i == v.cursor, &v.documents[i], w))
		b.WriteString("\n")
	}

	if len(v.documents) > rows {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.offset+1, end, len(v.documents))))
	}
}

func (v *View) renderRow(selected bool, doc *domain.DocumentSummary, w int) string {
	name := truncate(doc.Filename, w)
	detail := fmt.Sprintf("%-10s %3d pages %4d chunks", doc.Status, doc.Pages, doc.Chunks)

	if selected {
		return v.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", w, name, detail))
	}
	row := v.styles.Normal.Render(fmt.Sprintf("  %-*s  ", w, name)) + statusStyle(v.styles, doc.Status).Render(detail)
	if doc.Status == domain.StatusFailed && doc.Error != "" {
		row += v.styles.Muted.Render("  " + truncate(doc.Error, w))
	}
	return row
}

func (v *View) renderMenu() string {
	var b strings.Builder

	if doc := v.SelectedDocument(); doc != nil {
		b.WriteString(v.styles.Subtitle.Render("Actions for: " + doc.Filename))
		b.WriteString("\n\n")
	}
	for i, a := range actions {
		if i == v.menuCursor {
			b.WriteString(v.styles.Selected.Render("> " + a.label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + a.label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine([]key.Binding{keys.Up, keys.Down, keys.Select, keys.Cancel})))
	return b.String()
}

func statusStyle(s *styles.Styles, status domain.DocumentStatus) lipgloss.Style {
	switch status {
	case domain.StatusReady:
		return s.Success
	case domain.StatusFailed:
		return s.Error
	case domain.StatusProcessing, domain.StatusPending:
		return s.Warning
	default:
		return s.Muted
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.DocumentSummary {
	return v.documents
}

// SelectedIndex returns the cursor position.
func (v *View) SelectedIndex() int {
	return v.cursor
}

// SelectedDocument returns the document under the cursor, or nil.
func (v *View) SelectedDocument() *domain.DocumentSummary {
	if v.cursor < len(v.documents) {
		return &v.documents[v.cursor]
	}
	return nil
}

// IsShowingMenu reports whether the action menu is open.
func (v *View) IsShowingMenu() bool {
	return v.menuOpen
}

// IsLoading reports whether a list request is in flight.
func (v *View) IsLoading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
