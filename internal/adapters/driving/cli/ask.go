package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about indexed documents",
	Long: `Ask a natural-language question. The answer cites the pages it was
drawn from and carries an advisory evaluation.

Examples:
  docintel ask "What is the termination notice period?"
  docintel ask --doc 3f2a... --top-k 8 "Summarise the risks"
  docintel ask --schema RiskSummaryV1 --json "What are the key risks?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// Flags for the ask command.
var (
	askTopK   int
	askDocs   []string
	askNoLLM  bool
	askSchema string
	askJSON   bool
)

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", domain.DefaultTopK, "number of chunks to retrieve (1-20)")
	askCmd.Flags().StringSliceVarP(&askDocs, "doc", "d", nil, "restrict retrieval to these document ids")
	askCmd.Flags().BoolVar(&askNoLLM, "no-llm", false, "answer from retrieved evidence only")
	askCmd.Flags().StringVarP(&askSchema, "schema", "s", "", "structured response schema")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	req := domain.QueryRequest{
		Question:    strings.Join(args, " "),
		TopK:        askTopK,
		DocumentIDs: askDocs,
		UseLLM:      !askNoLLM,
		Schema:      askSchema,
	}

	resp, err := queryService.Ask(cmd.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSchema) {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(queryService.Schemas(), ", "))
		}
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, resp)
	}

	printAnswer(cmd, resp)
	return nil
}

func printAnswer(cmd *cobra.Command, resp *domain.QueryResponse) {
	cmd.Println(resp.Answer)
	cmd.Println()

	for _, w := range resp.Warnings {
		cmd.Printf("warning: %s\n", w)
	}
	if resp.NonConformant {
		cmd.Println("warning: model output did not match the requested schema")
	}

	if len(resp.Citations) > 0 {
		cmd.Println("Sources:")
		for i, c := range resp.Citations {
			name := c.Filename
			if name == "" {
				name = c.DocumentID
			}
			score := ""
			if c.Score != nil {
				score = fmt.Sprintf(" (%.2f)", *c.Score)
			}
			cmd.Printf("  [%d] %s, page %d%s\n", i+1, name, c.Page, score)
		}
		cmd.Println()
	}

	cmd.Printf("Confidence: %.2f\n", resp.Confidence)
	if resp.Evaluation != nil {
		verdict := "passed"
		if !resp.Evaluation.Passed {
			verdict = "failed"
		}
		cmd.Printf("Evaluation: %s (score %.2f, hallucination %.2f)\n",
			verdict, resp.Evaluation.OverallScore, resp.Evaluation.Hallucination.Score)
	}
}
