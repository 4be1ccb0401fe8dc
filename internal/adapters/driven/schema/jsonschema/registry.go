// Package jsonschema provides the response schema registry backed by
// compiled JSON Schema documents.
package jsonschema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.SchemaRegistry = (*Registry)(nil)

//go:embed schemas/*.json
var builtin embed.FS

type entry struct {
	descriptor domain.SchemaDescriptor
	schema     *gojsonschema.Schema
}

// Registry holds compiled schemas keyed by name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]entry
}

// New compiles the built-in schemas.
func New() (*Registry, error) {
	r := &Registry{schemas: make(map[string]entry)}

	files, err := fs.Glob(builtin, "schemas/*.json")
	if err != nil {
		return nil, fmt.Errorf("list built-in schemas: %w", err)
	}
	for _, file := range files {
		data, err := builtin.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", file, err)
		}
		name := strings.TrimSuffix(path.Base(file), ".json")
		if err := r.Register(name, data); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register compiles doc and adds it under name, replacing any existing
// schema with that name. The description is taken from the document's
// "description" keyword.
func (r *Registry) Register(name string, doc []byte) error {
	if name == "" {
		return fmt.Errorf("%w: schema name is empty", domain.ErrInvalidInput)
	}

	var meta struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(doc, &meta); err != nil {
		return fmt.Errorf("%w: schema %s is not valid JSON: %v", domain.ErrInvalidInput, name, err)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: compile schema %s: %v", domain.ErrInvalidInput, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = entry{
		descriptor: domain.SchemaDescriptor{
			Name:        name,
			Description: meta.Description,
			Document:    append([]byte(nil), doc...),
		},
		schema: compiled,
	}
	return nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (domain.SchemaDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.schemas[name]
	if !ok {
		return domain.SchemaDescriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownSchema, name)
	}
	return e.descriptor, nil
}

// Names lists registered schema names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks payload against the named schema. Raw JSON may be passed
// as []byte, json.RawMessage or string; anything else is validated as a Go
// value.
func (r *Registry) Validate(name string, payload any) ([]string, error) {
	r.mu.RLock()
	e, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSchema, name)
	}

	var loader gojsonschema.JSONLoader
	switch v := payload.(type) {
	case []byte:
		loader = gojsonschema.NewBytesLoader(v)
	case json.RawMessage:
		loader = gojsonschema.NewBytesLoader(v)
	case string:
		loader = gojsonschema.NewStringLoader(v)
	default:
		loader = gojsonschema.NewGoLoader(v)
	}

	result, err := e.schema.Validate(loader)
	if err != nil {
		return []string{fmt.Sprintf("payload is not valid JSON: %v", err)}, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	sort.Strings(violations)
	return violations, nil
}
