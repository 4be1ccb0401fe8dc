package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <cases.yaml>",
	Short: "Score recorded answers against their evidence",
	Long: `Run the evaluation harness over a YAML file of cases.

Each case has an answer, its citations and evidence, and optionally a
schema with a structured payload and an expect_pass verdict:

  - name: grounded answer
    answer: "Payment is due within 30 days of invoice."
    citations:
      - doc_id: d1
        page: 2
    evidence:
      - doc_id: d1
        page: 2
        text: "Payment is due within 30 days of invoice."
    expect_pass: true

The command fails when any case disagrees with its expect_pass.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

var evaluateJSON bool

func init() {
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print outcomes as JSON")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evaluationService == nil {
		return errors.New("evaluation service not configured")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open cases: %w", err)
	}
	defer f.Close()

	cases, err := decodeCases(f)
	if err != nil {
		return err
	}

	outcomes := evaluationService.EvaluateCases(cmd.Context(), cases)

	if evaluateJSON {
		if err := printJSON(cmd, outcomes); err != nil {
			return err
		}
	} else {
		printOutcomes(cmd, outcomes)
	}

	mismatched := 0
	for _, o := range outcomes {
		if !o.Matched {
			mismatched++
		}
	}
	if mismatched > 0 {
		return fmt.Errorf("%d of %d cases did not match their expected verdict", mismatched, len(outcomes))
	}
	return nil
}

// decodeCases reads a YAML list of evaluation cases.
func decodeCases(r io.Reader) ([]domain.EvaluationCase, error) {
	var cases []domain.EvaluationCase
	if err := yaml.NewDecoder(r).Decode(&cases); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no evaluation cases", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: decode cases: %v", domain.ErrInvalidInput, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: no evaluation cases", domain.ErrInvalidInput)
	}
	return cases, nil
}

func printOutcomes(cmd *cobra.Command, outcomes []domain.CaseOutcome) {
	for _, o := range outcomes {
		verdict := "PASS"
		if !o.Result.Passed {
			verdict = "FAIL"
		}
		mark := ""
		if !o.Matched {
			mark = "  (unexpected)"
		}
		cmd.Printf("%-4s %-30s score=%.2f faithfulness=%.2f hallucination=%.2f schema=%t%s\n",
			verdict, o.Name, o.Result.OverallScore, o.Result.Faithfulness.Score,
			o.Result.Hallucination.Score, o.Result.Schema.Valid, mark)
		if o.Result.Error != "" {
			cmd.Printf("     error: %s\n", o.Result.Error)
		}
		for _, e := range o.Result.Schema.Errors {
			cmd.Printf("     schema: %s\n", e)
		}
	}
}
