// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

// Evidence actions.
const (
	ActionOpenPage     = "Open page"
	ActionScopeToDoc   = "Ask only this document"
	ActionClearScope   = "Ask all documents"
	ActionCancel       = "Cancel"
	answerPanelMaxRows = 12
)

// ActionMenu is the action selection overlay for an evidence item.
type ActionMenu struct {
	actions  []string
	selected int
	item     domain.EvidenceItem
}

// View shows the question input, the answer and its evidence.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.EvidenceList
	statusbar *status.Bar

	queryService driving.QueryService
	ctx          context.Context

	response   *domain.QueryResponse
	scope      []string
	useLLM     bool
	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
	actionMenu *ActionMenu
}

// NewView creates a new ask view.
func NewView(s *styles.Styles, km *keymap.KeyMap, queryService driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQuestionInput(s),
		list:         list.NewEvidenceList(s),
		statusbar:    status.NewBar(s, km),
		queryService: queryService,
		ctx:          context.Background(),
		useLLM:       true,
		width:        80,
		height:       24,
		focusInput:   true,
	}
}

// WithContext sets the context used for queries.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AskCompleted:
		v.handleAskCompleted(msg)
		return v, nil

	case messages.ScopeChanged:
		v.SetScope(msg.DocumentIDs)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	km := v.keymap

	switch {
	case v.actionMenu != nil:
		return v, v.menuKey(k)
	case keymap.Matches(k, km.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	case keymap.Matches(k, km.ToggleLLM):
		v.useLLM = !v.useLLM
		v.statusbar.SetUseLLM(v.useLLM)
		return v, nil
	case v.focusInput && keymap.Matches(k, km.Ask):
		return v, v.submit()
	case v.focusInput:
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	// Browsing evidence.
	switch {
	case keymap.Matches(k, km.Actions):
		v.openMenu()
	case keymap.Matches(k, km.Up):
		v.list.MoveUp()
	case keymap.Matches(k, km.Down):
		v.list.MoveDown()
	case keymap.Matches(k, km.NewQuestion):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}
	return v, nil
}

// submit sends the typed question. Blank input is ignored.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" {
		return nil
	}
	v.err = nil
	v.statusbar.SetState(status.StateAsking)
	v.focusInput = false
	v.input.Blur()
	return v.performAsk(question)
}

func (v *View) openMenu() {
	item := v.list.SelectedItem()
	if item == nil {
		return
	}
	actions := []string{ActionOpenPage, ActionScopeToDoc}
	if len(v.scope) > 0 {
		actions = append(actions, ActionClearScope)
	}
	v.actionMenu = &ActionMenu{actions: append(actions, ActionCancel), item: *item}
}

func (v *View) menuKey(k string) tea.Cmd {
	m := v.actionMenu
	switch {
	case keymap.Matches(k, v.keymap.Up):
		m.selected = max(m.selected-1, 0)
	case keymap.Matches(k, v.keymap.Down):
		m.selected = min(m.selected+1, len(m.actions)-1)
	case keymap.Matches(k, v.keymap.Select):
		v.actionMenu = nil
		_, cmd := v.executeAction(m.actions[m.selected], m.item)
		return cmd
	case keymap.Matches(k, v.keymap.Cancel):
		v.actionMenu = nil
	}
	return nil
}

func (v *View) executeAction(action string, item domain.EvidenceItem) (*View, tea.Cmd) {
	switch action {
	case ActionOpenPage:
		return v, func() tea.Msg {
			return messages.DocumentSelected{DocumentID: item.DocumentID, Page: item.Page}
		}
	case ActionScopeToDoc:
		v.SetScope([]string{item.DocumentID})
	case ActionClearScope:
		v.SetScope(nil)
	}
	return v, nil
}

// performAsk returns a command that asks the question.
func (v *View) performAsk(question string) tea.Cmd {
	req := domain.QueryRequest{
		Question:    question,
		TopK:        domain.DefaultTopK,
		DocumentIDs: v.scope,
		UseLLM:      v.useLLM,
	}
	return func() tea.Msg {
		if v.queryService == nil {
			return messages.ErrorOccurred{Err: ErrNoQueryService}
		}
		resp, err := v.queryService.Ask(v.ctx, req)
		return messages.AskCompleted{Response: resp, Err: err}
	}
}

func (v *View) handleAskCompleted(msg messages.AskCompleted) {
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		v.focusInput = true
		v.input.Focus()
		return
	}

	v.err = nil
	v.response = msg.Response
	v.list.SetItems(msg.Response.Evidence)
	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetAnswer(len(msg.Response.Evidence), msg.Response.Confidence)
	v.focusInput = false
	v.input.Blur()
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("docintel"), "", v.input.View())

	if len(v.scope) > 0 {
		sections = append(sections, v.styles.Muted.Render(fmt.Sprintf("scope: %s", strings.Join(v.scope, ", "))))
	}
	sections = append(sections, "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.response != nil {
		sections = append(sections, v.renderAnswer(), "")
		sections = append(sections, v.list.View())
	}

	if v.actionMenu != nil {
		sections = append(sections, "", v.renderActionMenu())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderAnswer() string {
	resp := v.response
	width := v.width - 4
	if width < 20 {
		width = 20
	}

	lines := strings.Split(lipgloss.NewStyle().Width(width).Render(resp.Answer), "\n")
	if len(lines) > answerPanelMaxRows {
		lines = append(lines[:answerPanelMaxRows], "...")
	}
	parts := []string{v.styles.Answer.Render(strings.Join(lines, "\n"))}

	for _, w := range resp.Warnings {
		parts = append(parts, v.styles.Warning.Render("warning: "+w))
	}
	if resp.NonConformant {
		parts = append(parts, v.styles.Warning.Render("warning: output did not match the requested schema"))
	}

	if resp.Evaluation != nil {
		verdict := v.styles.Success.Render("passed")
		if !resp.Evaluation.Passed {
			verdict = v.styles.Error.Render("failed")
		}
		parts = append(parts, v.styles.Muted.Render("evaluation: ")+verdict+
			v.styles.Muted.Render(fmt.Sprintf(" (score %.2f, hallucination %.2f)",
				resp.Evaluation.OverallScore, resp.Evaluation.Hallucination.Score)))
	}

	return strings.Join(parts, "\n")
}

func (v *View) renderActionMenu() string {
	lines := make([]string, 0, len(v.actionMenu.actions))
	for i, action := range v.actionMenu.actions {
		if i == v.actionMenu.selected {
			lines = append(lines, v.styles.Selected.Render("> "+action))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+action))
		}
	}
	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-answerPanelMaxRows-10)
	v.statusbar.SetWidth(width)
}

// SetScope restricts subsequent questions to the given documents.
func (v *View) SetScope(ids []string) {
	v.scope = ids
	v.statusbar.SetMessage("")
	if len(ids) > 0 {
		v.statusbar.SetMessage(fmt.Sprintf("scope: %d document(s)", len(ids)))
	}
}

// Scope returns the current document restriction.
func (v *View) Scope() []string {
	return v.scope
}

// UseLLM reports whether questions use the language model.
func (v *View) UseLLM() bool {
	return v.useLLM
}

// Question returns the current input value.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the input value.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Response returns the last answer, if any.
func (v *View) Response() *domain.QueryResponse {
	return v.response
}

// SelectedIndex returns the index of the selected evidence item.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// MenuVisible reports whether the evidence action menu is open.
func (v *View) MenuVisible() bool {
	return v.actionMenu != nil
}

// Reset returns the view to input mode. The scope and answer mode are kept.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetItems(nil)
	v.response = nil
	v.err = nil
	v.actionMenu = nil
	v.statusbar.SetState(status.StateReady)
}

// Width returns the view width.
func (v *View) Width() int {
	return v.width
}

// Height returns the view height.
func (v *View) Height() int {
	return v.height
}
