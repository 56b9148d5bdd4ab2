// Package run drives a whole spreadsheet through the form: open the page,
// wait for it, then hand each row to the row processor in order.
package run

import (
	"context"
	"fmt"
	"time"

	"formfill/internal/browser"
	"formfill/internal/download"
	"formfill/internal/form"
	"formfill/internal/logging"
	"formfill/internal/sheet"
	"formfill/internal/store"

	"github.com/google/uuid"
)

// Options configures a Runner.
type Options struct {
	FormURL  string
	DataFile string
	// LoadWait is the settle time after the page reports ready.
	LoadWait time.Duration
	// RowPause is the pause between rows.
	RowPause time.Duration
	// ReopenEachRow navigates to the form again before every row after
	// the first.
	ReopenEachRow bool
	// Force processes rows already submitted in earlier runs.
	Force bool
	// Prefetch downloads every row's image before the form loop.
	Prefetch      bool
	PrefetchLimit int
	// UploadColumn is read for prefetch jobs.
	UploadColumn string
}

// RowProcessor fills one row.
type RowProcessor interface {
	Process(ctx context.Context, row sheet.Row) form.RowReport
}

// Ledger records runs and answers which rows were already submitted.
type Ledger interface {
	BeginRun(ctx context.Context, info store.RunInfo) error
	RecordRow(ctx context.Context, rec store.RowRecord) error
	FinishRun(ctx context.Context, id string, finished time.Time, status string) error
	SubmittedHashes(ctx context.Context, formURL string) (map[string]bool, error)
}

// Prefetcher downloads images ahead of the form loop.
type Prefetcher interface {
	Prefetch(ctx context.Context, jobs []download.Job, limit int) (int, error)
}

// Runner is the driver loop.
type Runner struct {
	screen    browser.Screen
	processor RowProcessor
	ledger    Ledger
	prefetch  Prefetcher
	opts      Options
}

// New creates a Runner. ledger and prefetch may be nil.
func New(screen browser.Screen, processor RowProcessor, ledger Ledger, prefetch Prefetcher, opts Options) *Runner {
	return &Runner{
		screen:    screen,
		processor: processor,
		ledger:    ledger,
		prefetch:  prefetch,
		opts:      opts,
	}
}

// Run processes rows in order. It returns an error only when the form
// cannot be opened; row-level failures are in the report. Cancelling ctx
// stops before the next row and marks the report cancelled.
func (r *Runner) Run(ctx context.Context, rows []sheet.Row) (*Report, error) {
	rep := &Report{
		RunID:   uuid.NewString(),
		FormURL: r.opts.FormURL,
		Started: time.Now(),
	}
	log := logging.Get(logging.CategoryRun).With("run", rep.RunID)
	log.Info("Starting run over %d rows", len(rows))

	done := r.beginRun(ctx, rep)
	r.prefetchImages(ctx, rows, done)

	if err := r.open(ctx); err != nil {
		r.finish(ctx, rep)
		return rep, err
	}

	processed := 0
	for i, row := range rows {
		if ctx.Err() != nil {
			break
		}

		if done[row.Hash()] {
			log.Info("Row %d already submitted, skipping", row.Number())
			skipped := form.RowReport{Index: row.Index, Hash: row.Hash(), Skipped: true, Started: time.Now()}
			r.record(ctx, rep, skipped)
			continue
		}

		if processed > 0 && r.opts.ReopenEachRow {
			if err := r.open(ctx); err != nil {
				if ctx.Err() != nil {
					break
				}
				logging.RunError("Reopening form before row %d failed: %v", row.Number(), err)
				r.record(ctx, rep, form.RowReport{Index: row.Index, Hash: row.Hash(), Started: time.Now()})
				continue
			}
		}

		log.Info("--- Filling form for row %d ---", row.Number())
		rr := r.processor.Process(ctx, row)
		r.record(ctx, rep, rr)
		processed++

		if i < len(rows)-1 {
			if err := browser.Sleep(ctx, r.opts.RowPause); err != nil {
				break
			}
		}
	}

	r.finish(ctx, rep)
	t := rep.Tally()
	log.Info("Run finished: %d complete, %d partial, %d failed, %d skipped",
		t[form.OutcomeComplete], t[form.OutcomePartial], t[form.OutcomeFailed], t[form.OutcomeSkipped])
	return rep, nil
}

func (r *Runner) open(ctx context.Context) error {
	logging.Run("Opening form %s", r.opts.FormURL)
	if err := r.screen.Open(ctx, r.opts.FormURL); err != nil {
		return fmt.Errorf("failed to open form: %w", err)
	}
	if err := r.screen.WaitReady(ctx); err != nil {
		return fmt.Errorf("form did not become ready: %w", err)
	}
	if r.opts.LoadWait > 0 {
		logging.Run("Waiting %v for the page to settle", r.opts.LoadWait)
	}
	return browser.Sleep(ctx, r.opts.LoadWait)
}

// beginRun registers the run and loads the submitted-row set.
func (r *Runner) beginRun(ctx context.Context, rep *Report) map[string]bool {
	if r.ledger == nil {
		return nil
	}
	if err := r.ledger.BeginRun(ctx, store.RunInfo{ID: rep.RunID, FormURL: rep.FormURL, DataFile: r.opts.DataFile, Started: rep.Started}); err != nil {
		logging.RunWarn("Ledger unavailable: %v", err)
	}
	if r.opts.Force {
		return nil
	}
	done, err := r.ledger.SubmittedHashes(ctx, r.opts.FormURL)
	if err != nil {
		logging.RunWarn("Could not read submitted rows, processing all: %v", err)
		return nil
	}
	return done
}

func (r *Runner) prefetchImages(ctx context.Context, rows []sheet.Row, done map[string]bool) {
	if !r.opts.Prefetch || r.prefetch == nil || r.opts.UploadColumn == "" {
		return
	}
	var jobs []download.Job
	for _, row := range rows {
		if done[row.Hash()] {
			continue
		}
		if u, ok := row.Value(r.opts.UploadColumn); ok {
			jobs = append(jobs, download.Job{Index: row.Index, URL: u})
		}
	}
	if len(jobs) == 0 {
		return
	}
	if _, err := r.prefetch.Prefetch(ctx, jobs, r.opts.PrefetchLimit); err != nil {
		logging.RunWarn("Prefetch interrupted: %v", err)
	}
}

func (r *Runner) record(ctx context.Context, rep *Report, rr form.RowReport) {
	rep.Rows = append(rep.Rows, rr)
	if r.ledger == nil {
		return
	}
	if err := r.ledger.RecordRow(context.WithoutCancel(ctx), toRecord(rep.RunID, rr)); err != nil {
		logging.RunWarn("Failed to record row %d: %v", rr.Index+1, err)
	}
}

func (r *Runner) finish(ctx context.Context, rep *Report) {
	rep.Finished = time.Now()
	rep.Cancelled = ctx.Err() != nil
	if r.ledger == nil {
		return
	}
	status := store.RunFinished
	if rep.Cancelled {
		status = store.RunCancelled
	}
	if err := r.ledger.FinishRun(context.WithoutCancel(ctx), rep.RunID, rep.Finished, status); err != nil {
		logging.RunWarn("Failed to finish run in ledger: %v", err)
	}
}

func toRecord(runID string, rr form.RowReport) store.RowRecord {
	c := rr.Counts()
	rec := store.RowRecord{
		RunID:     runID,
		Index:     rr.Index,
		Hash:      rr.Hash,
		Outcome:   string(rr.Outcome()),
		Submitted: rr.Submitted,
		Filled:    c.Filled,
		Skipped:   c.Skipped,
		Failed:    c.Failed,
		Started:   rr.Started,
		Duration:  rr.Duration,
	}
	for _, f := range rr.Fields {
		rec.Fields = append(rec.Fields, store.FieldRecord{Anchor: f.Anchor, Column: f.Column, Status: string(f.Status), Reason: f.Reason})
	}
	if rr.Upload.Status != "" {
		rec.Fields = append(rec.Fields, store.FieldRecord{Anchor: rr.Upload.Anchor, Column: rr.Upload.Column, Status: string(rr.Upload.Status), Reason: rr.Upload.Reason})
	}
	if rr.Submit.Status != "" {
		rec.Fields = append(rec.Fields, store.FieldRecord{Anchor: rr.Submit.Anchor, Status: string(rr.Submit.Status), Reason: rr.Submit.Reason})
	}
	return rec
}
