// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docintel/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady    State = "ready"
	StateAsking   State = "asking"
	StateError    State = "error"
	StateHelp     State = "help"
	StateAnswered State = "answered"
)

// Bar displays the answer state, answer mode and keybinding hints.
type Bar struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	state         State
	message       string
	evidenceCount int
	confidence    float64
	useLLM        bool
	width         int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		useLLM: true,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages. The bar is updated via its setters.
func (s *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) mode() string {
	if s.useLLM {
		return "llm"
	}
	return "evidence"
}

func (s *Bar) renderLeft() string {
	mode := s.styles.Citation.Render(s.mode()) + s.styles.Muted.Render(" | ")

	switch s.state {
	case StateAsking:
		return mode + s.styles.Muted.Render("Thinking...")
	case StateError:
		if s.message != "" {
			return mode + s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return mode + s.styles.Error.Render("Error")
	case StateHelp:
		return mode + s.styles.Normal.Render("Help")
	case StateAnswered:
		return mode + s.styles.Normal.Render(fmt.Sprintf("%d sources | conf ", s.evidenceCount)) +
			s.styles.Score(s.confidence).Render(fmt.Sprintf("%.2f", s.confidence))
	case StateReady:
		if s.message != "" {
			return mode + s.styles.Muted.Render(s.message)
		}
	}
	return mode + s.styles.Muted.Render("Ready")
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateAnswered {
		bindings = s.keymap.ResultsHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets an error or informational message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetAnswer records the evidence count and confidence of the last answer.
func (s *Bar) SetAnswer(evidence int, confidence float64) {
	s.evidenceCount = evidence
	s.confidence = confidence
}

// EvidenceCount returns the evidence count of the last answer.
func (s *Bar) EvidenceCount() int {
	return s.evidenceCount
}

// SetUseLLM sets the displayed answer mode.
func (s *Bar) SetUseLLM(v bool) {
	s.useLLM = v
}

// UseLLM reports the displayed answer mode.
func (s *Bar) UseLLM() bool {
	return s.useLLM
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to its ready state. The answer mode is kept.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.evidenceCount = 0
	s.confidence = 0
}
