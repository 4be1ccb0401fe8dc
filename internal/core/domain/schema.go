package domain

// Registered response schema names.
const (
	SchemaRiskSummaryV1    = "RiskSummaryV1"
	SchemaDocumentSummary  = "DocumentSummary"
	SchemaFinancialSummary = "FinancialSummary"
)

// SchemaDescriptor is a strongly-typed handle on a registered response schema.
type SchemaDescriptor struct {
	// Name is the registry identifier.
	Name string

	// Description is a one-line summary shown to users.
	Description string

	// Document is the JSON Schema document.
	Document []byte
}
