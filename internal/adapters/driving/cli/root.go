// Package cli implements the docintel command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docintel/internal/core/ports/driving"
	"github.com/custodia-labs/docintel/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services holds the driving ports the commands call.
type Services struct {
	Documents  driving.DocumentService
	Query      driving.QueryService
	Evaluation driving.EvaluationService
	Settings   driving.SettingsService

	// Metrics serves /metrics in MCP HTTP mode. May be nil.
	Metrics http.Handler

	// Close releases resources and drains background ingestion.
	Close func(ctx context.Context) error
}

// Options are the global flags passed to the service builder.
type Options struct {
	ConfigDir string
	Verbose   bool
}

// Builder constructs the services once flags are parsed.
type Builder func(ctx context.Context, opts Options) (*Services, error)

// Global flag values.
var (
	verbose   bool
	configDir string
)

var (
	builder  Builder
	services *Services

	documentService   driving.DocumentService
	queryService      driving.QueryService
	evaluationService driving.EvaluationService
	settingsService   driving.SettingsService
	metricsHandler    http.Handler
)

// shutdownTimeout bounds how long the CLI waits for queued documents.
const shutdownTimeout = 5 * time.Minute

// noServices marks commands that run without building services.
const noServices = "docintel/no-services"

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Document intelligence: ingest PDFs and images, ask grounded questions",
	Long: `docintel ingests PDFs and images, extracts text (with OCR for scanned
pages), indexes the chunks as vectors and answers questions with
citations back to the source pages.

Answers come from a configured LLM when available and fall back to the
retrieved evidence otherwise. Every answer carries an advisory evaluation
of faithfulness, hallucination risk and schema compliance.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		return closeServices(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "data directory (default ~/.docintel)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBuilder registers the function that builds services before a command
// runs.
func SetBuilder(b Builder) {
	builder = b
}

// SetServices injects services directly, bypassing the builder.
func SetServices(s *Services) {
	services = s
	if s == nil {
		documentService, queryService, evaluationService, settingsService = nil, nil, nil, nil
		metricsHandler = nil
		return
	}
	documentService = s.Documents
	queryService = s.Query
	evaluationService = s.Evaluation
	settingsService = s.Settings
	metricsHandler = s.Metrics
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer func() {
		_ = closeServices(context.Background())
	}()
	return rootCmd.ExecuteContext(ctx)
}

func preRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[noServices] == "true" || services != nil || builder == nil {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	built, err := builder(ctx, Options{ConfigDir: configDir, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialise: %w", err)
	}
	SetServices(built)
	return nil
}

func closeServices(ctx context.Context) error {
	s := services
	if s == nil || s.Close == nil {
		return nil
	}
	services.Close = nil

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
