package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string   `json:"question" jsonschema:"the question to answer from indexed documents"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve, 1 to 20 (default 5)"`
	DocIDs   []string `json:"doc_ids,omitempty" jsonschema:"restrict retrieval to these document ids"`
	NoLLM    bool     `json:"no_llm,omitempty" jsonschema:"answer from retrieved evidence without calling the language model"`
	Schema   string   `json:"response_schema,omitempty" jsonschema:"name of a structured response schema"`
}

// SubmitInput is the input schema for the submit_document tool.
type SubmitInput struct {
	Filename string `json:"filename" jsonschema:"file name including extension (.pdf .png .jpg .jpeg .tif .tiff)"`
	Content  string `json:"content_base64" jsonschema:"base64-encoded file content, at most 10 MiB decoded"`
}

// SubmitOutput is the output schema for the submit_document tool.
type SubmitOutput struct {
	DocumentID string `json:"doc_id"`
	Status     string `json:"status"`
}

// DocumentIDInput names a single document.
type DocumentIDInput struct {
	DocumentID string `json:"doc_id" jsonschema:"document id returned by submit_document"`
}

// DocumentOutput is the status view of a document.
type DocumentOutput struct {
	DocumentID       string `json:"doc_id"`
	Filename         string `json:"filename"`
	Status           string `json:"status"`
	Error            string `json:"error,omitempty"`
	Pages            int    `json:"pages"`
	Chunks           int    `json:"chunks"`
	Blocks           int    `json:"blocks"`
	Embeddings       int    `json:"embeddings"`
	Tables           int    `json:"tables"`
	Extractions      int    `json:"extractions"`
	ExtractionMethod string `json:"extraction_method"`
	UploadedAt       string `json:"uploaded_at"`
}

// ListDocumentsInput is the (empty) input schema for list_documents.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for list_documents.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// EvidenceInput is a piece of evidence passed to the evaluate tool.
type EvidenceInput struct {
	DocumentID string `json:"doc_id"`
	Page       int    `json:"page"`
	ChunkID    string `json:"chunk_id,omitempty"`
	Text       string `json:"text" jsonschema:"full evidence text"`
}

// CitationInput is a citation passed to the evaluate tool.
type CitationInput struct {
	DocumentID string `json:"doc_id"`
	Page       int    `json:"page"`
	ChunkID    string `json:"chunk_id,omitempty"`
}

// EvaluateInput is the input schema for the evaluate tool.
type EvaluateInput struct {
	Answer     string          `json:"answer" jsonschema:"the answer to score"`
	Citations  []CitationInput `json:"citations,omitempty"`
	Evidence   []EvidenceInput `json:"evidence,omitempty"`
	Schema     string          `json:"schema,omitempty" jsonschema:"schema the structured payload must satisfy"`
	Structured map[string]any  `json:"structured,omitempty" jsonschema:"structured payload checked against schema"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from indexed documents with page citations and an evaluation",
	}, s.handleAsk)

	if s.ports.Documents != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "submit_document",
			Description: "Submit a PDF or image for background ingestion",
		}, s.handleSubmit)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "document_status",
			Description: "Get the processing status and counts of a document",
		}, s.handleStatus)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List all registered documents",
		}, s.handleListDocuments)
	}

	if s.ports.Evaluation != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "evaluate",
			Description: "Score an answer for faithfulness, hallucination risk and schema compliance",
		}, s.handleEvaluate)
	}
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, domain.QueryResponse, error) {
	req := domain.QueryRequest{
		Question:    input.Question,
		TopK:        input.TopK,
		DocumentIDs: input.DocIDs,
		UseLLM:      !input.NoLLM,
		Schema:      input.Schema,
	}
	if req.TopK == 0 {
		req.TopK = domain.DefaultTopK
	}

	resp, err := s.ports.Query.Ask(ctx, req)
	if err != nil {
		return nil, domain.QueryResponse{}, err
	}
	return nil, *resp, nil
}

func (s *Server) handleSubmit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SubmitInput,
) (*mcp.CallToolResult, SubmitOutput, error) {
	data, err := base64.StdEncoding.DecodeString(input.Content)
	if err != nil {
		return nil, SubmitOutput{}, fmt.Errorf("%w: content_base64: %v", domain.ErrInvalidInput, err)
	}

	id, err := s.ports.Documents.Submit(ctx, input.Filename, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, SubmitOutput{}, err
	}
	return nil, SubmitOutput{DocumentID: id, Status: string(domain.StatusPending)}, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentIDInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if input.DocumentID == "" {
		return nil, DocumentOutput{}, errors.New("doc_id is required")
	}
	summary, err := s.ports.Documents.Status(ctx, input.DocumentID)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, documentOutput(summary), nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	out := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		out.Documents[i] = documentOutput(&docs[i])
	}
	return nil, out, nil
}

func (s *Server) handleEvaluate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input EvaluateInput,
) (*mcp.CallToolResult, domain.EvaluationResult, error) {
	eval := domain.EvaluationInput{
		Answer:     input.Answer,
		Schema:     input.Schema,
		Structured: input.Structured,
		Citations:  make([]domain.Citation, len(input.Citations)),
		Evidence:   make([]domain.EvidenceItem, len(input.Evidence)),
	}
	for i, c := range input.Citations {
		eval.Citations[i] = domain.Citation{DocumentID: c.DocumentID, Page: c.Page, ChunkID: c.ChunkID}
	}
	for i, e := range input.Evidence {
		eval.Evidence[i] = domain.EvidenceItem{
			DocumentID: e.DocumentID,
			Page:       e.Page,
			ChunkID:    e.ChunkID,
			Snippet:    domain.Snippet(e.Text),
			Text:       e.Text,
		}
	}

	return nil, s.ports.Evaluation.Evaluate(ctx, eval), nil
}

func documentOutput(s *domain.DocumentSummary) DocumentOutput {
	return DocumentOutput{
		DocumentID:       s.DocumentID,
		Filename:         s.Filename,
		Status:           string(s.Status),
		Error:            s.Error,
		Pages:            s.Pages,
		Chunks:           s.Chunks,
		Blocks:           s.Blocks,
		Embeddings:       s.Embeddings,
		Tables:           s.Tables,
		Extractions:      s.Extractions,
		ExtractionMethod: string(s.ExtractionMethod),
		UploadedAt:       s.UploadedAt.UTC().Format(time.RFC3339),
	}
}
