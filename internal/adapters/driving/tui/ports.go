// Package tui provides an interactive terminal user interface for docintel.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Query answers questions. Required.
	Query driving.QueryService

	// Documents lists and shows ingested documents. Optional; the
	// documents screens are hidden without it.
	Documents driving.DocumentService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(query driving.QueryService, documents driving.DocumentService) *Ports {
	return &Ports{
		Query:     query,
		Documents: documents,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
