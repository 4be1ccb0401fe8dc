package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/views/document"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/docintel/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model

	menuView      *menu.View
	askView       *ask.View
	documentsView *documents.View
	documentView  *document.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, ErrInvalidPorts
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	h := help.New()
	h.Styles.FullKey = s.Subtitle
	h.Styles.FullDesc = s.Muted
	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keys:          km,
		help:          h,
		menuView:      menu.NewView(s, ports.Documents != nil),
		askView:       ask.NewView(s, km, ports.Query),
		documentsView: documents.NewView(s, ports.Documents),
		documentView:  document.NewView(s, ports.Documents),
		currentView:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context used by every view for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.documentView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("docintel"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.updateCurrent(msg)

	case messages.AskCompleted:
		a.askView, cmd = a.askView.Update(msg)
		a.err = msg.Err
		return a, cmd

	case messages.ViewChanged:
		return a, a.switchView(msg.View)

	case messages.ScopeChanged:
		a.askView, cmd = a.askView.Update(msg)
		a.currentView = messages.ViewAsk
		return a, tea.Batch(cmd, a.askView.Init())

	case messages.DocumentsLoaded:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.DocumentSelected:
		a.documentView.SetReturnView(a.currentView)
		a.currentView = messages.ViewDocument
		return a, a.documentView.Open(msg.DocumentID, msg.Page)

	case messages.DocumentLoaded:
		a.documentView, cmd = a.documentView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.updateCurrent(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.updateCurrent(msg)
}

// switchView activates view and runs its entry command.
func (a *App) switchView(view messages.ViewType) tea.Cmd {
	previous := a.currentView
	a.currentView = view

	switch view {
	case messages.ViewAsk:
		if previous == messages.ViewMenu {
			a.askView.Reset()
		}
		return a.askView.Init()
	case messages.ViewDocuments:
		if a.ports.Documents == nil {
			a.currentView = messages.ViewMenu
			return nil
		}
		return a.documentsView.Load()
	case messages.ViewMenu, messages.ViewDocument, messages.ViewHelp:
	}
	return nil
}

// updateCurrent forwards msg to the active view.
func (a *App) updateCurrent(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocument:
		a.documentView, cmd = a.documentView.Update(msg)
	case messages.ViewHelp:
		if k, ok := msg.(tea.KeyMsg); ok && keymap.Matches(k.String(), a.keys.Back) {
			a.currentView = messages.ViewMenu
		}
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewDocument:
		return a.documentView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewMenu:
	}
	return a.menuView.View()
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + "\n\n" +
		a.help.FullHelpView(a.keys.FullHelp()) + "\n\n" +
		a.styles.Help.Render(keymap.HelpLine([]key.Binding{a.keys.Back}))
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Question returns the text in the ask view's input.
func (a *App) Question() string {
	return a.askView.Question()
}

// Response returns the last answer shown in the ask view.
func (a *App) Response() *domain.QueryResponse {
	return a.askView.Response()
}

// Scope returns the ask view's document restriction.
func (a *App) Scope() []string {
	return a.askView.Scope()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.askView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.documentView.SetDimensions(width, height)
}
