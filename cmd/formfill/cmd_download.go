package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"formfill/internal/download"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var downloadLimit int

// downloadCmd fetches row images without opening the form
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download every row's image into the downloads directory",
	Long: `Fetches the image referenced by each selected row, unwrapping
redirect-style links, and saves it as image_<row>.jpg. Useful to warm the
downloads directory before a run or to spot broken links.`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVar(&rowsFlag, "rows", "", "Row selection, e.g. 2-5,9 or 3- (1-based)")
	downloadCmd.Flags().IntVar(&downloadLimit, "concurrency", 0, "Parallel downloads (default from config)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	col := cfg.Layout.Upload.Column
	if col == "" {
		return fmt.Errorf("layout has no upload column")
	}
	rows, err := loadRows(cfg, rowsFlag)
	if err != nil {
		return err
	}

	var jobs []download.Job
	for _, r := range rows {
		if u, ok := r.Value(col); ok {
			jobs = append(jobs, download.Job{Index: r.Index, URL: u})
		}
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No image URLs found.")
		return nil
	}

	limit := downloadLimit
	if limit <= 0 {
		limit = cfg.GetPrefetchLimit()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dl := download.New(downloadOptions(cfg))
	defer dl.Close()

	logger.Info("Downloading images", zap.Int("jobs", len(jobs)), zap.Int("concurrency", limit))
	fetched, err := dl.Prefetch(ctx, jobs, limit)
	if err != nil {
		logger.Warn("Download interrupted", zap.Error(err))
	}

	s := styles()
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d images saved to %s\n",
		s.Success.Render("Downloaded"), fetched, len(jobs), cfg.Paths.Downloads)
	return nil
}
