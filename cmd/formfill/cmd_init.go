package main

import (
	"fmt"
	"os"

	"formfill/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var initOverwrite bool

// initCmd writes a starter config
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default formfill.yaml and create the working directories",
	Long: `Writes the default configuration, including the stock form layout, to
the --config path and creates the anchors and downloads directories.
An existing config is left alone unless --overwrite is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initOverwrite, "overwrite", false, "Replace an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	def := config.DefaultConfig()

	if _, err := os.Stat(configPath); err == nil && !initOverwrite {
		fmt.Fprintf(out, "%s already exists; use --overwrite to replace it\n", configPath)
	} else {
		if err := def.Save(configPath); err != nil {
			return err
		}
		logger.Info("Wrote config", zap.String("path", configPath))
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	}

	for _, dir := range []string{cfg.Paths.Anchors, cfg.Paths.Downloads} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	fmt.Fprintf(out, "Place the anchor images (%d) in %s\n", len(layoutFrom(def.Layout).Anchors()), cfg.Paths.Anchors)
	return nil
}
