// Package styles holds the colour palette and lipgloss styles of the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Score bands used to colour similarity and confidence values.
const (
	StrongScore = 0.6
	WeakScore   = 0.3
)

// Theme is the colour palette.
type Theme struct {
	Accent    lipgloss.Color
	Reference lipgloss.Color
	Text      lipgloss.Color
	Dim       lipgloss.Color
	Panel     lipgloss.Color
	Rule      lipgloss.Color

	Good lipgloss.Color
	Fair lipgloss.Color
	Bad  lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#2F80ED"),
		Reference: lipgloss.Color("#56CCF2"),
		Text:      lipgloss.Color("#E0E0E0"),
		Dim:       lipgloss.Color("#828282"),
		Panel:     lipgloss.Color("#1B1F24"),
		Rule:      lipgloss.Color("#3A3F47"),
		Good:      lipgloss.Color("#27AE60"),
		Fair:      lipgloss.Color("#F2C94C"),
		Bad:       lipgloss.Color("#EB5757"),
	}
}

// Styles are the rendered styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style

	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style

	// Answer frames a synthesised answer with a left rule.
	Answer lipgloss.Style

	// Citation renders "[n] file, page p" references.
	Citation lipgloss.Style

	// PageHeader marks page boundaries in the document view.
	PageHeader lipgloss.Style
}

// NewStyles derives styles from theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Reference),
		Normal:   lipgloss.NewStyle().Foreground(theme.Text),
		Muted:    lipgloss.NewStyle().Foreground(theme.Dim),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(theme.Text).Background(theme.Accent),
		Help:     lipgloss.NewStyle().Foreground(theme.Dim).Italic(true),

		Error:   lipgloss.NewStyle().Foreground(theme.Bad),
		Success: lipgloss.NewStyle().Foreground(theme.Good),
		Warning: lipgloss.NewStyle().Foreground(theme.Fair),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Accent).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Dim).
			Background(theme.Panel).
			Padding(0, 1),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Rule),

		Answer: lipgloss.NewStyle().
			Foreground(theme.Text).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderForeground(theme.Accent).
			PaddingLeft(1),
		Citation: lipgloss.NewStyle().Foreground(theme.Reference),
		PageHeader: lipgloss.NewStyle().Bold(true).Foreground(theme.Dim).Background(theme.Panel),
	}
}

// DefaultStyles returns styles for DefaultTheme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Score picks the style for a cosine score or confidence value.
func (s *Styles) Score(v float64) lipgloss.Style {
	switch {
	case v >= StrongScore:
		return s.Success
	case v >= WeakScore:
		return s.Warning
	default:
		return s.Error
	}
}
