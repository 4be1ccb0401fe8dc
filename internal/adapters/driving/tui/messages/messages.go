// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docintel/internal/core/domain"
)

// AskCompleted carries the answer to a question back to the model.
type AskCompleted struct {
	Response *domain.QueryResponse
	Err      error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the question input and answer view.
	ViewAsk
	// ViewDocuments lists registered documents.
	ViewDocuments
	// ViewDocument shows one document's status, pages and tables.
	ViewDocument
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewDocuments:
		return "documents"
	case ViewDocument:
		return "document"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsLoaded carries the registered documents.
type DocumentsLoaded struct {
	Documents []domain.DocumentSummary
	Err       error
}

// DocumentSelected asks the app to open a document. Page, when positive,
// is scrolled into view.
type DocumentSelected struct {
	DocumentID string
	Page       int
}

// DocumentLoaded carries a document's artifacts.
type DocumentLoaded struct {
	DocumentID string
	Artifacts  *domain.DocumentArtifacts
	Err        error
}

// ScopeChanged restricts subsequent questions to a set of documents.
// An empty list clears the restriction.
type ScopeChanged struct {
	DocumentIDs []string
}
