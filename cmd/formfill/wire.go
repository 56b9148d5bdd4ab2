package main

import (
	"fmt"
	"strings"

	"formfill/internal/browser"
	"formfill/internal/config"
	"formfill/internal/download"
	"formfill/internal/filler"
	"formfill/internal/form"
	"formfill/internal/locator"
	"formfill/internal/run"
	"formfill/internal/sheet"
)

// layoutFrom converts the configured layout into the row processor's layout.
func layoutFrom(c config.LayoutConfig) form.Layout {
	var l form.Layout
	for _, g := range c.Groups {
		group := form.Group{Name: g.Name, Scroll: g.Scroll}
		if g.Scroll != 0 {
			group.Settle = g.GetSettle()
		}
		for _, f := range g.Fields {
			group.Fields = append(group.Fields, filler.Field{Anchor: f.Anchor, Column: f.Column, Dropdown: f.Dropdown})
		}
		l.Groups = append(l.Groups, group)
	}
	if c.Upload.Anchor != "" {
		l.Upload = form.UploadStep{
			Anchor:     c.Upload.Anchor,
			Column:     c.Upload.Column,
			PauseAfter: c.Upload.GetPauseAfter(),
		}
	}
	l.Submit = form.SubmitStep{
		Anchor:       c.Submit.Anchor,
		Scroll:       c.Submit.Scroll,
		ScrollSettle: c.Submit.GetScrollSettle(),
		PauseAfter:   c.Submit.GetPauseAfter(),
	}
	return l
}

func fillerOptions(c *config.Config) (filler.Options, error) {
	steps, err := filler.ParseKeySteps(c.Layout.Dropdown.Keys)
	if err != nil {
		return filler.Options{}, fmt.Errorf("invalid dropdown keys: %w", err)
	}
	return filler.Options{
		KeyInterval:  c.GetKeyInterval(),
		AfterType:    c.GetAfterType(),
		DialogWait:   c.Layout.Upload.GetDialogWait(),
		UploadSettle: c.Layout.Upload.GetSettle(),
		Dropdown:     filler.Dropdown{Match: c.Layout.Dropdown.Match, Steps: steps},
	}, nil
}

func locatorOptions(c *config.Config) locator.Options {
	return locator.Options{
		Dir:          c.Paths.Anchors,
		Confidence:   c.GetConfidence(),
		Timeout:      c.GetLocateTimeout(),
		PollInterval: c.GetPollInterval(),
		ClickSettle:  c.GetClickSettle(),
	}
}

func downloadOptions(c *config.Config) download.Options {
	return download.Options{
		Dir:       c.Paths.Downloads,
		Timeout:   c.GetDownloadTimeout(),
		UserAgent: c.Download.UserAgent,
	}
}

func browserConfig(c *config.Config) browser.Config {
	engine := strings.ToLower(c.Browser.Engine)
	if engine == "" {
		engine = browser.EngineRod
	}
	return browser.Config{
		Engine:              engine,
		Bin:                 c.Browser.Bin,
		Flags:               c.Browser.Flags,
		DebuggerURL:         c.Browser.DebuggerURL,
		Headless:            c.IsHeadless(),
		ViewportWidth:       c.Browser.ViewportWidth,
		ViewportHeight:      c.Browser.ViewportHeight,
		NavigationTimeoutMs: int(c.GetNavigationTimeout().Milliseconds()),
	}
}

func runOptions(c *config.Config, force bool) run.Options {
	return run.Options{
		FormURL:       c.Form.URL,
		DataFile:      c.Data.File,
		LoadWait:      c.GetLoadWait(),
		RowPause:      c.GetRowPause(),
		ReopenEachRow: c.Form.ReopenEachRow,
		Force:         force,
		Prefetch:      c.Download.Prefetch,
		PrefetchLimit: c.GetPrefetchLimit(),
		UploadColumn:  c.Layout.Upload.Column,
	}
}

// loadRows reads the workbook and applies the --rows selection.
func loadRows(c *config.Config, selection string) ([]sheet.Row, error) {
	ranges, err := sheet.ParseRanges(selection)
	if err != nil {
		return nil, err
	}
	rows, err := sheet.Load(c.Data.File, sheet.Options{Sheet: c.Data.Sheet})
	if err != nil {
		return nil, err
	}
	return sheet.Select(rows, ranges), nil
}

// missingColumns lists layout columns absent from every row.
func missingColumns(layout form.Layout, rows []sheet.Row) []string {
	present := make(map[string]bool)
	for _, r := range rows {
		for _, col := range r.Columns() {
			present[col] = true
		}
	}
	var out []string
	for _, col := range layout.Columns() {
		if !present[col] {
			out = append(out, col)
		}
	}
	return out
}
