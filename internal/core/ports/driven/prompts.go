package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptGroundedAnswer asks the model to answer from retrieved context.
	// The template uses the {{question}} and {{context}} placeholders.
	PromptGroundedAnswer = "grounded_answer"

	// PromptSchemaInstructions is appended when a response schema is requested.
	// The template uses the {{schema}} placeholder.
	PromptSchemaInstructions = "schema_instructions"
)

// DefaultPrompts returns the built-in templates. Stores fall back to these
// when a user file is missing, and services use them when no store is set.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptGroundedAnswer: `You are a helpful assistant that answers questions using only the provided document context.

Question: {{question}}

Context from documents:
{{context}}

Answer clearly and accurately from the context above. Cite pages as [Page N]. If the answer cannot be found in the context, say so.`,
		PromptSchemaInstructions: `

Format your response according to this schema:
{{schema}}

Respond with a single JSON object that satisfies the schema.`,
	}
}
