package cli

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docintel/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for docintel.

The TUI lets you ask questions, inspect the evidence behind each answer,
and browse the pages and tables extracted from your documents.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Ask / Select
  ctrl+l   - Toggle the language model
  Esc      - Back / Cancel
  ctrl+c   - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// tuiPorts builds the TUI ports from the configured services.
func tuiPorts() *tui.Ports {
	return tui.NewPorts(queryService, documentService)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Panic in TUI: %v\n", r)
			fmt.Fprintf(cmd.ErrOrStderr(), "Stack trace:\n%s\n", debug.Stack())
			err = errors.New("TUI panicked")
		}
	}()

	if queryService == nil {
		return errors.New("query service not configured")
	}

	app, err := tui.NewApp(tuiPorts())
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
