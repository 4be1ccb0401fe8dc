// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docintel/internal/core/domain"
)

var navKeys = keymap.DefaultKeyMap()

// EvidenceList displays retrieved evidence in a navigable list.
type EvidenceList struct {
	items    []domain.EvidenceItem
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewEvidenceList creates a new evidence list component.
func NewEvidenceList(s *styles.Styles) *EvidenceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &EvidenceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *EvidenceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *EvidenceList) Update(msg tea.Msg) (*EvidenceList, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}
	switch k := key.String(); {
	case keymap.Matches(k, navKeys.Up):
		l.MoveUp()
	case keymap.Matches(k, navKeys.Down):
		l.MoveDown()
	}
	return l, nil
}

// View renders the list.
func (l *EvidenceList) View() string {
	if len(l.items) == 0 {
		return l.styles.Muted.Render("No evidence")
	}

	lines := make([]string, 0, len(l.items)*2+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Evidence (%d)", len(l.items))), "")

	// Each item renders as a header line plus a snippet line.
	visibleCount := (l.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if l.selected >= visibleCount {
		start = l.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(l.items) {
		end = len(l.items)
	}

	for i := start; i < end; i++ {
		lines = append(lines, l.renderItem(i, &l.items[i]))
	}

	return strings.Join(lines, "\n")
}

func (l *EvidenceList) renderItem(index int, item *domain.EvidenceItem) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	name := item.Filename
	if name == "" {
		name = item.DocumentID
	}
	label := fmt.Sprintf("[%d] %s, page %d", index+1, name, item.Page)

	maxLabel := l.width - 12
	if maxLabel < 10 {
		maxLabel = 10
	}
	label = truncate(label, maxLabel)

	score := fmt.Sprintf("%.2f", item.Score)

	var header string
	if index == l.selected {
		header = l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxLabel, label, score))
	} else {
		header = l.styles.Citation.Render(fmt.Sprintf("%s%-*s  ", indicator, maxLabel, label)) +
			l.styles.Score(item.Score).Render(score)
	}

	snippet := strings.Join(strings.Fields(item.Snippet), " ")
	maxSnippet := l.width - 6
	if maxSnippet < 20 {
		maxSnippet = 20
	}

	return header + "\n" + l.styles.Muted.Render("    "+truncate(snippet, maxSnippet))
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// SetItems replaces the list contents and resets the selection.
func (l *EvidenceList) SetItems(items []domain.EvidenceItem) {
	l.items = items
	l.selected = 0
}

// Items returns the current items.
func (l *EvidenceList) Items() []domain.EvidenceItem {
	return l.items
}

// Selected returns the index of the selected item.
func (l *EvidenceList) Selected() int {
	return l.selected
}

// SetSelected sets the selected index.
func (l *EvidenceList) SetSelected(index int) {
	if index >= 0 && index < len(l.items) {
		l.selected = index
	}
}

// SelectedItem returns the selected item, or nil if the list is empty.
func (l *EvidenceList) SelectedItem() *domain.EvidenceItem {
	if len(l.items) == 0 || l.selected < 0 || l.selected >= len(l.items) {
		return nil
	}
	return &l.items[l.selected]
}

// MoveUp moves selection up.
func (l *EvidenceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *EvidenceList) MoveDown() {
	if l.selected < len(l.items)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *EvidenceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of items.
func (l *EvidenceList) Count() int {
	return len(l.items)
}

// IsEmpty returns whether the list is empty.
func (l *EvidenceList) IsEmpty() bool {
	return len(l.items) == 0
}
