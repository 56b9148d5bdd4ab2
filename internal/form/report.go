package form

import (
	"time"

	"formfill/internal/filler"
)

// Outcome summarizes a row.
type Outcome string

const (
	// OutcomeComplete means every field, the upload and the submit click went through.
	OutcomeComplete Outcome = "complete"
	// OutcomePartial means submit was clicked but some steps were skipped or failed.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed means the submit control was never clicked.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the row was not processed (already submitted).
	OutcomeSkipped Outcome = "skipped"
)

// RowReport records one row's pass through the form.
type RowReport struct {
	Index     int
	Hash      string
	Fields    []filler.Result
	Upload    filler.Result
	Submit    filler.Result
	Submitted bool
	Skipped   bool
	Started   time.Time
	Duration  time.Duration
}

// Counts tallies field results by status, upload included.
type Counts struct {
	Filled, Skipped, Failed int
}

// Counts returns the tally of field and upload results.
func (r RowReport) Counts() Counts {
	var c Counts
	results := append([]filler.Result{}, r.Fields...)
	if r.Upload.Status != "" {
		results = append(results, r.Upload)
	}
	for _, res := range results {
		switch res.Status {
		case filler.StatusFilled:
			c.Filled++
		case filler.StatusSkipped:
			c.Skipped++
		case filler.StatusFailed:
			c.Failed++
		}
	}
	return c
}

// Outcome classifies the row.
func (r RowReport) Outcome() Outcome {
	switch {
	case r.Skipped:
		return OutcomeSkipped
	case !r.Submitted:
		return OutcomeFailed
	}
	c := r.Counts()
	if c.Skipped > 0 || c.Failed > 0 {
		return OutcomePartial
	}
	return OutcomeComplete
}
