package driven

import "github.com/custodia-labs/docintel/internal/core/domain"

// SchemaRegistry resolves response schema names to typed descriptors.
type SchemaRegistry interface {
	// Get returns the descriptor or domain.ErrUnknownSchema.
	Get(name string) (domain.SchemaDescriptor, error)

	// Names lists registered schema names in sorted order.
	Names() []string

	// Validate checks payload against the named schema and returns the
	// violations. An empty slice means the payload conforms.
	Validate(name string, payload any) ([]string, error)
}
