// Package menu provides the main navigation menu view for the TUI.
package menu

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/styles"
)

// Item represents a single menu option.
type Item struct {
	Label string
	Hint  string
	View  messages.ViewType
	Quit  bool
}

var keys = keymap.DefaultKeyMap()

// View represents the main menu view.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	width    int
	height   int
	ready    bool
}

// NewView creates a new menu view. The Documents entry is only offered
// when a document service is available.
func NewView(s *styles.Styles, withDocuments bool) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	items := []Item{{Label: "Ask", Hint: "question your documents", View: messages.ViewAsk}}
	if withDocuments {
		items = append(items, Item{Label: "Documents", Hint: "browse ingested files", View: messages.ViewDocuments})
	}
	items = append(items,
		Item{Label: "Help", View: messages.ViewHelp},
		Item{Label: "Quit", Quit: true},
	)

	return &View{
		styles: s,
		items:  items,
		width:  80,
		height: 24,
	}
}

// Init initialises the menu view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		return v, v.handleKey(msg.String())
	}
	return v, nil
}

func (v *View) handleKey(k string) tea.Cmd {
	switch {
	case keymap.Matches(k, keys.Up):
		v.selected = max(v.selected-1, 0)
	case keymap.Matches(k, keys.Down):
		v.selected = min(v.selected+1, len(v.items)-1)
	case keymap.Matches(k, keys.Select):
		item := v.items[v.selected]
		if item.Quit {
			return tea.Quit
		}
		return func() tea.Msg { return messages.ViewChanged{View: item.View} }
	case keymap.Matches(k, keys.Quit):
		return tea.Quit
	}
	return nil
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder

	b.WriteString(v.styles.Title.Render("docintel"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render("Document Question Answering"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + item.Label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + item.Label))
		}
		if item.Hint != "" {
			b.WriteString(v.styles.Muted.Render("  " + item.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine([]key.Binding{keys.Up, keys.Down, keys.Select, keys.Quit})))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// Items returns the menu entries.
func (v *View) Items() []Item {
	return v.items
}
