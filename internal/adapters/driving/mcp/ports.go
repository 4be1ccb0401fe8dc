package mcp

import (
	"net/http"

	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Query answers questions. Required.
	Query driving.QueryService

	// Documents accepts uploads and reports status. Optional.
	Documents driving.DocumentService

	// Evaluation scores answers. Optional.
	Evaluation driving.EvaluationService

	// Metrics is mounted at /metrics in HTTP mode. Optional.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
