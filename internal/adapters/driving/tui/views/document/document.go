// Package document provides the page-by-page document content view for the TUI.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

var keys = keymap.DefaultKeyMap()

// ErrNoDocumentService indicates the view was built without a document service.
var ErrNoDocumentService = errors.New("document service not available")

// View renders a document's extracted pages and tables.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	ctx             context.Context

	documentID   string
	targetPage   int
	returnTo     messages.ViewType
	artifacts    *domain.DocumentArtifacts
	lines        []string
	pageLines    map[int]int
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
}

// NewView creates a new document view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		ctx:             context.Background(),
		returnTo:        messages.ViewDocuments,
		width:           80,
		height:          24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetReturnView sets the view that esc navigates back to.
func (v *View) SetReturnView(view messages.ViewType) {
	v.returnTo = view
}

// Open loads a document and scrolls to page once loaded. A page of zero
// starts at the top.
func (v *View) Open(documentID string, page int) tea.Cmd {
	v.documentID = documentID
	v.targetPage = page
	v.artifacts = nil
	v.lines = nil
	v.pageLines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true

	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentLoaded{DocumentID: documentID, Err: ErrNoDocumentService}
		}
		artifacts, err := v.documentService.Get(v.ctx, documentID)
		return messages.DocumentLoaded{DocumentID: documentID, Artifacts: artifacts, Err: err}
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the document view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentLoaded:
		if msg.DocumentID != v.documentID {
			return v, nil
		}
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.artifacts = msg.Artifacts
		v.err = nil
		v.layout()
		v.ScrollToPage(v.targetPage)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, keys.Up):
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case keymap.Matches(k, keys.Down):
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case keymap.Matches(k, keys.PageUp):
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case keymap.Matches(k, keys.PageDown):
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case keymap.Matches(k, keys.Top):
		v.scrollOffset = 0
	case keymap.Matches(k, keys.Bottom):
		v.scrollOffset = v.maxScrollOffset()
	case keymap.Matches(k, keys.NextPage):
		v.ScrollToPage(v.CurrentPage() + 1)
	case keymap.Matches(k, keys.PrevPage):
		v.ScrollToPage(v.CurrentPage() - 1)
	case keymap.Matches(k, keys.Back):
		back := v.returnTo
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}

	return v, nil
}

// layout flattens the artifacts into wrapped display lines and records
// where each page starts.
func (v *View) layout() {
	v.lines = nil
	v.pageLines = map[int]int{}
	if v.artifacts == nil {
		return
	}

	tablesByPage := map[int][]domain.Table{}
	for _, t := range v.artifacts.Tables {
		tablesByPage[t.Page] = append(tablesByPage[t.Page], t)
	}

	pages := append([]domain.Page(nil), v.artifacts.Pages...)
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })

	for _, p := range pages {
		v.pageLines[p.PageNumber] = len(v.lines)
		v.lines = append(v.lines, fmt.Sprintf("--- Page %d (%s) ---", p.PageNumber, p.ExtractionMethod))
		v.appendWrapped(p.Text)
		for _, t := range tablesByPage[p.PageNumber] {
			v.lines = append(v.lines, "", fmt.Sprintf("[table %d: %dx%d]", t.TableIndex, t.Rows, t.Columns))
			v.appendWrapped(domain.TableText(t.Data))
		}
		v.lines = append(v.lines, "")
	}
}

func (v *View) appendWrapped(text string) {
	width := max(v.width-4, 20)
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		for len(runes) > width {
			v.lines = append(v.lines, string(runes[:width]))
			runes = runes[width:]
		}
		v.lines = append(v.lines, string(runes))
	}
}

// ScrollToPage moves the viewport to the start of page. Unknown pages
// leave the position unchanged.
func (v *View) ScrollToPage(page int) {
	line, ok := v.pageLines[page]
	if !ok {
		return
	}
	v.scrollOffset = min(line, v.maxScrollOffset())
}

// CurrentPage returns the page whose header is at or above the top line.
func (v *View) CurrentPage() int {
	current := 0
	best := -1
	for page, line := range v.pageLines {
		if line <= v.scrollOffset && line > best {
			best = line
			current = page
		}
	}
	return current
}

// visibleLines reserves room for the header block and help footer.
func (v *View) visibleLines() int {
	return max(v.height-9, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the document view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.renderHeader())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading document..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case v.artifacts != nil && v.artifacts.Status == domain.StatusFailed:
		b.WriteString(v.styles.Error.Render("Processing failed: " + v.artifacts.Error))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No extracted content yet)"))
	default:
		visible := v.visibleLines()
		for i := v.scrollOffset; i < len(v.lines) && i < v.scrollOffset+visible; i++ {
			line := v.lines[i]
			if strings.HasPrefix(line, "--- Page ") {
				b.WriteString(v.styles.PageHeader.Render(line))
			} else {
				b.WriteString(v.styles.Normal.Render(line))
			}
			b.WriteString("\n")
		}
		if len(v.lines) > visible {
			b.WriteString("\n")
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  page %d | line %d-%d of %d",
				v.CurrentPage(),
				v.scrollOffset+1,
				min(v.scrollOffset+visible, len(v.lines)),
				len(v.lines))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine(keys.ReaderHelp())))
	return b.String()
}

func (v *View) renderHeader() string {
	if v.artifacts == nil {
		title := v.documentID
		if title == "" {
			title = "Document"
		}
		return v.styles.Title.Render(title)
	}

	a := v.artifacts
	title := v.styles.Title.Render(a.Raw.Filename)
	meta := fmt.Sprintf("%s | %s | %d pages | %d chunks | %d tables",
		a.Raw.ID, a.Status, len(a.Pages), len(a.Chunks), len(a.Tables))
	return title + "\n" + v.styles.Muted.Render(meta)
}

// SetDimensions sets the view dimensions and rewraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	if v.artifacts != nil {
		page := v.CurrentPage()
		v.layout()
		v.ScrollToPage(page)
	}
}

// DocumentID returns the id of the open document.
func (v *View) DocumentID() string {
	return v.documentID
}

// Artifacts returns the loaded artifacts.
func (v *View) Artifacts() *domain.DocumentArtifacts {
	return v.artifacts
}

// Lines returns the rendered content lines.
func (v *View) Lines() []string {
	return v.lines
}

// ScrollOffset returns the index of the top visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// IsLoading reports whether a load is in flight.
func (v *View) IsLoading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
