package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docintel/internal/adapters/driving/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Submit PDFs and images as they appear in a directory",
	Long: `Watch a directory and submit every supported file created or written
there. Files are submitted once they have been quiet for a short settle
period. Press Ctrl+C to stop; queued documents finish before exit.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchExisting bool

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also submit files already in the directory")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	var opts []watcher.Option
	if watchExisting {
		opts = append(opts, watcher.WithExisting())
	}

	w, err := watcher.New(args[0], documentService, opts...)
	if err != nil {
		return err
	}

	out := make(chan watcher.Submitted)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(cmd.Context(), out)
		close(out)
	}()

	cmd.Printf("Watching %s\n", args[0])
	for s := range out {
		if s.Err != nil {
			cmd.Printf("  failed  %s: %v\n", s.Path, s.Err)
			continue
		}
		cmd.Printf("  queued  %s as %s\n", s.Path, s.DocumentID)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
