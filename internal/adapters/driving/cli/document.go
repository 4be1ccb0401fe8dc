package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Submit and inspect documents",
	Long:  `Submit PDFs and images for ingestion and inspect what the pipeline produced.`,
}

var documentSubmitCmd = &cobra.Command{
	Use:   "submit <file>...",
	Short: "Submit files for ingestion",
	Long: `Submit one or more PDF or image files (up to 10 MiB each).

Ingestion runs in the background. Use --wait to block until every
document is ready or failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocumentSubmit,
}

var documentStatusCmd = &cobra.Command{
	Use:   "status <doc-id>",
	Short: "Show processing status and counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentStatus,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks <doc-id>",
	Short: "Print a document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var documentTablesCmd = &cobra.Command{
	Use:   "tables <doc-id>",
	Short: "Print tables extracted from a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentTables,
}

// Flags for document commands.
var (
	documentJSON     bool
	submitWait       bool
	submitPollPeriod = 500 * time.Millisecond
	chunksPage       int
)

func init() {
	documentSubmitCmd.Flags().BoolVarP(&submitWait, "wait", "w", false, "wait for ingestion to finish")
	documentChunksCmd.Flags().IntVarP(&chunksPage, "page", "p", 0, "only show chunks from this page")

	for _, c := range []*cobra.Command{documentStatusCmd, documentListCmd, documentChunksCmd, documentTablesCmd} {
		c.Flags().BoolVar(&documentJSON, "json", false, "print JSON")
	}

	documentCmd.AddCommand(documentSubmitCmd)
	documentCmd.AddCommand(documentStatusCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentChunksCmd)
	documentCmd.AddCommand(documentTablesCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentSubmit(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := cmd.Context()
	ids := make([]string, 0, len(args))
	for _, path := range args {
		id, err := submitFile(cmd, path)
		if err != nil {
			return err
		}
		cmd.Printf("Submitted %s as %s\n", filepath.Base(path), id)
		ids = append(ids, id)
	}

	if !submitWait {
		return nil
	}

	ticker := time.NewTicker(submitPollPeriod)
	defer ticker.Stop()

	var failed int
	for _, id := range ids {
		for {
			summary, err := documentService.Status(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get status of %s: %w", id, err)
			}
			if summary.Status == domain.StatusReady || summary.Status == domain.StatusFailed {
				printSummaryLine(cmd, summary)
				if summary.Status == domain.StatusFailed {
					failed++
				}
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(ids))
	}
	return nil
}

func submitFile(cmd *cobra.Command, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	id, err := documentService.Submit(cmd.Context(), filepath.Base(path), f, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to submit %s: %w", path, err)
	}
	return id, nil
}

func runDocumentStatus(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	summary, err := documentService.Status(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, summary)
	}

	cmd.Printf("Document: %s\n\n", summary.DocumentID)
	cmd.Printf("  Filename:    %s\n", summary.Filename)
	cmd.Printf("  Status:      %s\n", summary.Status)
	if summary.Error != "" {
		cmd.Printf("  Error:       %s\n", summary.Error)
	}
	cmd.Printf("  Uploaded:    %s\n", summary.UploadedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Extraction:  %s\n", summary.ExtractionMethod)
	cmd.Printf("  Pages:       %d\n", summary.Pages)
	cmd.Printf("  Blocks:      %d\n", summary.Blocks)
	cmd.Printf("  Chunks:      %d\n", summary.Chunks)
	cmd.Printf("  Embeddings:  %d\n", summary.Embeddings)
	cmd.Printf("  Tables:      %d\n", summary.Tables)
	cmd.Printf("  Extractions: %d\n", summary.Extractions)
	return nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents registered.")
		return nil
	}

	for i := range docs {
		printSummaryLine(cmd, &docs[i])
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func printSummaryLine(cmd *cobra.Command, s *domain.DocumentSummary) {
	cmd.Printf("  %s  %-10s  %-30s  %d pages, %d chunks\n",
		s.DocumentID, s.Status, s.Filename, s.Pages, s.Chunks)
	if s.Error != "" {
		cmd.Printf("    error: %s\n", s.Error)
	}
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	chunks, err := documentService.Chunks(cmd.Context(), args[0], chunksPage)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, chunks)
	}

	if len(chunks) == 0 {
		cmd.Println("No chunks.")
		return nil
	}

	for _, c := range chunks {
		cmd.Printf("--- %s (page %d, %d chars)\n", c.ID, c.PageNumber, c.CharCount)
		cmd.Println(c.Text)
	}
	return nil
}

func runDocumentTables(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	tables, err := documentService.Tables(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, tables)
	}

	if len(tables) == 0 {
		cmd.Println("No tables found.")
		return nil
	}

	for _, t := range tables {
		cmd.Printf("--- page %d, table %d (%dx%d)\n", t.Page, t.TableIndex, t.Rows, t.Columns)
		cmd.Println(t.Text)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
