// Package mcp exposes docintel to AI assistants over the Model Context
// Protocol, on stdio or streamable HTTP.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
