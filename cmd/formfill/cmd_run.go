package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"formfill/internal/browser"
	"formfill/internal/download"
	"formfill/internal/filler"
	"formfill/internal/form"
	"formfill/internal/locator"
	"formfill/internal/run"
	"formfill/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rowsFlag     string
	dryRun       bool
	forceRows    bool
	headlessFlag bool
	engineFlag   string
)

// runCmd fills the form once per row
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fill and submit the form once per spreadsheet row",
	Long: `Opens the configured form, waits for it to load and then, for every
selected row, fills the fields, uploads the row's image and clicks submit.

Rows already submitted to the same form in earlier runs are skipped unless
--force is given. Ctrl+C stops the current row and exits; the
interrupted row is recorded as not submitted.

Examples:
  formfill run
  formfill run --rows 2-5,9
  formfill run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runForm,
}

func init() {
	runCmd.Flags().StringVar(&rowsFlag, "rows", "", "Row selection, e.g. 2-5,9 or 3- (1-based)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Load and validate only; do not start the browser")
	runCmd.Flags().BoolVar(&forceRows, "force", false, "Process rows already submitted in earlier runs")
	runCmd.Flags().BoolVar(&headlessFlag, "headless", false, "Run the browser without a window")
	runCmd.Flags().StringVar(&engineFlag, "engine", "", "Browser engine (rod, chromedp)")
}

func runForm(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = &headlessFlag
	}
	if engineFlag != "" {
		cfg.Browser.Engine = engineFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fopts, err := fillerOptions(cfg)
	if err != nil {
		return err
	}
	layout := layoutFrom(cfg.Layout)

	rows, err := loadRows(cfg, rowsFlag)
	if err != nil {
		return err
	}
	logger.Info("Loaded rows", zap.String("file", cfg.Data.File), zap.Int("rows", len(rows)))
	for _, col := range missingColumns(layout, rows) {
		logger.Warn("Column not in workbook; its field will be skipped", zap.String("column", col))
	}

	if dryRun {
		problems := checkAnchors(locator.New(nil, locatorOptions(cfg)), layout)
		printCheck(cmd.OutOrStdout(), layout, rows, problems)
		return nil
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No rows to process.")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	screen, err := browser.New(browserConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create browser: %w", err)
	}
	defer func() {
		if err := screen.Close(); err != nil {
			logger.Warn("Browser close failed", zap.Error(err))
		}
	}()

	loc := locator.New(screen, locatorOptions(cfg))
	fl := filler.New(screen, loc, fopts)
	dl := download.New(downloadOptions(cfg))
	defer dl.Close()
	proc := form.NewProcessor(screen, loc, fl, dl, layout)

	var ledger run.Ledger
	if l, err := store.Open(cfg.Paths.Ledger); err != nil {
		logger.Warn("Ledger unavailable; rows will not be recorded", zap.Error(err))
	} else {
		defer l.Close()
		ledger = l
	}

	rep, err := run.New(screen, proc, ledger, dl, runOptions(cfg, forceRows)).Run(ctx, rows)
	if err != nil {
		return err
	}
	printRunReport(cmd.OutOrStdout(), rep)
	return nil
}
