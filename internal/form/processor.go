// Package form sequences one spreadsheet row through the form: field
// groups separated by scrolls, the image upload and the submit click.
package form

import (
	"context"
	"fmt"
	"time"

	"formfill/internal/browser"
	"formfill/internal/filler"
	"formfill/internal/logging"
	"formfill/internal/sheet"
)

// Fetcher downloads a row's image and returns the local path.
type Fetcher interface {
	Fetch(ctx context.Context, raw string, idx int) (string, error)
}

// Processor fills one row at a time. It is not safe for concurrent use;
// the browser has a single focus.
type Processor struct {
	screen  browser.Screen
	clicker filler.Clicker
	filler  *filler.Filler
	fetcher Fetcher
	layout  Layout
}

// NewProcessor wires a processor.
func NewProcessor(screen browser.Screen, clicker filler.Clicker, fl *filler.Filler, fetcher Fetcher, layout Layout) *Processor {
	return &Processor{
		screen:  screen,
		clicker: clicker,
		filler:  fl,
		fetcher: fetcher,
		layout:  layout,
	}
}

// Layout returns the layout the processor follows.
func (p *Processor) Layout() Layout {
	return p.layout
}

// Process fills, uploads and submits one row. Step failures are recorded in
// the report and never stop later steps; only context cancellation cuts the
// row short.
func (p *Processor) Process(ctx context.Context, row sheet.Row) (rep RowReport) {
	rep = RowReport{Index: row.Index, Hash: row.Hash(), Started: time.Now()}
	defer func() { rep.Duration = time.Since(rep.Started) }()
	log := logging.Get(logging.CategoryForm).With("row", row.Number())

	for _, g := range p.layout.Groups {
		if g.Scroll != 0 {
			log.Info("Scrolling %v for %s fields", g.Scroll, g.Name)
			if err := p.scroll(ctx, g.Scroll, g.Settle); err != nil {
				if ctx.Err() != nil {
					return rep
				}
				log.Warn("Scroll before %s failed: %v", g.Name, err)
			}
		}
		for _, f := range g.Fields {
			if ctx.Err() != nil {
				return rep
			}
			rep.Fields = append(rep.Fields, p.fill(ctx, row, f))
		}
	}

	if ctx.Err() != nil {
		return rep
	}
	if p.layout.Upload.Anchor != "" {
		rep.Upload = p.upload(ctx, row)
		if err := browser.Sleep(ctx, p.layout.Upload.PauseAfter); err != nil {
			return rep
		}
	}

	rep.Submit = p.submit(ctx)
	rep.Submitted = rep.Submit.Status == filler.StatusFilled
	// Pause even when submit was not found.
	_ = browser.Sleep(ctx, p.layout.Submit.PauseAfter)

	c := rep.Counts()
	log.Info("Row finished: %s (%d filled, %d skipped, %d failed)", rep.Outcome(), c.Filled, c.Skipped, c.Failed)
	return rep
}

func (p *Processor) fill(ctx context.Context, row sheet.Row, f filler.Field) filler.Result {
	if !row.Has(f.Column) {
		logging.FormWarn("Row %d: column %q not found", row.Number(), f.Column)
		return filler.Result{Anchor: f.Anchor, Column: f.Column, Status: filler.StatusSkipped, Reason: "column not found"}
	}
	value, _ := row.Value(f.Column)
	return p.filler.Fill(ctx, f, value)
}

func (p *Processor) upload(ctx context.Context, row sheet.Row) filler.Result {
	step := p.layout.Upload
	res := filler.Result{Anchor: step.Anchor, Column: step.Column}

	raw, ok := row.Value(step.Column)
	if !ok {
		logging.Form("Row %d: image URL missing, skipping upload", row.Number())
		res.Status, res.Reason = filler.StatusSkipped, "image URL missing"
		return res
	}

	start := time.Now()
	path, err := p.fetcher.Fetch(ctx, raw, row.Index)
	if err != nil {
		logging.FormWarn("Row %d: skipping upload: %v", row.Number(), err)
		res.Status, res.Reason, res.Duration = filler.StatusFailed, fmt.Sprintf("download: %v", err), time.Since(start)
		return res
	}

	up := p.filler.Upload(ctx, step.Anchor, path)
	up.Column = step.Column
	up.Duration = time.Since(start)
	return up
}

func (p *Processor) submit(ctx context.Context) filler.Result {
	step := p.layout.Submit
	start := time.Now()
	res := filler.Result{Anchor: step.Anchor}

	if step.Scroll != 0 {
		if err := p.scroll(ctx, step.Scroll, step.ScrollSettle); err != nil {
			if ctx.Err() != nil {
				res.Status, res.Reason = filler.StatusFailed, err.Error()
				return res
			}
			logging.FormWarn("Scroll before submit failed: %v", err)
		}
	}

	if _, err := p.clicker.Click(ctx, step.Anchor); err != nil {
		logging.FormWarn("Submit not clicked: %v", err)
		res.Status, res.Reason, res.Duration = filler.StatusFailed, err.Error(), time.Since(start)
		return res
	}
	logging.Form("Submitted via %s", step.Anchor)
	res.Status, res.Duration = filler.StatusFilled, time.Since(start)
	return res
}

func (p *Processor) scroll(ctx context.Context, amount float64, settle time.Duration) error {
	if err := p.screen.Scroll(ctx, amount); err != nil {
		return err
	}
	return browser.Sleep(ctx, settle)
}
