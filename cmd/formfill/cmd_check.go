package main

import (
	"errors"
	"fmt"
	"io"

	"formfill/internal/form"
	"formfill/internal/locator"
	"formfill/internal/sheet"

	"github.com/spf13/cobra"
)

// checkCmd validates inputs without touching the browser
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration, workbook and anchor images",
	Long: `Loads the configuration and workbook, then verifies that every anchor
image the layout uses exists and decodes, and that every column the layout
reads is present in the workbook.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&rowsFlag, "rows", "", "Row selection, e.g. 2-5,9 or 3- (1-based)")
}

// anchorProblem is an anchor that cannot be used.
type anchorProblem struct {
	Anchor string
	Err    error
}

func checkAnchors(loc *locator.Locator, layout form.Layout) []anchorProblem {
	var out []anchorProblem
	for _, a := range layout.Anchors() {
		if _, err := loc.Template(a); err != nil {
			out = append(out, anchorProblem{Anchor: a, Err: err})
		}
	}
	return out
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := fillerOptions(cfg); err != nil {
		return err
	}
	layout := layoutFrom(cfg.Layout)

	rows, err := loadRows(cfg, rowsFlag)
	if err != nil {
		return err
	}

	problems := checkAnchors(locator.New(nil, locatorOptions(cfg)), layout)
	printCheck(cmd.OutOrStdout(), layout, rows, problems)
	if len(problems) > 0 {
		return fmt.Errorf("%d anchor image(s) unusable", len(problems))
	}
	return nil
}

func printCheck(w io.Writer, layout form.Layout, rows []sheet.Row, problems []anchorProblem) {
	s := styles()
	fmt.Fprintln(w, s.Title.Render("Check"))
	fmt.Fprintf(w, "  Form:    %s\n", cfg.Form.URL)
	fmt.Fprintf(w, "  Data:    %s (%d rows)\n", cfg.Data.File, len(rows))
	fmt.Fprintf(w, "  Anchors: %s (%d used)\n", cfg.Paths.Anchors, len(layout.Anchors()))
	fmt.Fprintln(w)

	for _, col := range missingColumns(layout, rows) {
		fmt.Fprintf(w, "%s column %q not in workbook; its field will be skipped\n", s.Warning.Render("WARN"), col)
	}
	for _, p := range problems {
		reason := p.Err.Error()
		if errors.Is(p.Err, locator.ErrAnchorMissing) {
			reason = "file not found"
		}
		fmt.Fprintf(w, "%s anchor %s: %s\n", s.Error.Render("FAIL"), p.Anchor, reason)
	}
	if len(problems) == 0 {
		fmt.Fprintln(w, s.Success.Render("OK")+" all anchors present")
	}
}
