package main

import (
	"context"
	"fmt"

	"formfill/internal/store"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd shows past runs from the ledger
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past runs, or the rows of one run",
	Long: `Without arguments, lists the most recent runs with their row tallies.
With a run id, lists every row that run processed and each field's status.

Examples:
  formfill history
  formfill history --limit 5
  formfill history 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ledger, err := store.Open(cfg.Paths.Ledger)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	ctx := context.Background()
	if len(args) == 1 {
		rows, err := ledger.RunRows(ctx, args[0])
		if err != nil {
			return err
		}
		printRunRows(cmd.OutOrStdout(), args[0], rows)
		return nil
	}

	runs, err := ledger.Runs(ctx, historyLimit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), runs)
	return nil
}
