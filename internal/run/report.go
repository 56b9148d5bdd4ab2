package run

import (
	"time"

	"formfill/internal/form"
)

// Report is the result of one run.
type Report struct {
	RunID     string
	FormURL   string
	Rows      []form.RowReport
	Started   time.Time
	Finished  time.Time
	Cancelled bool
}

// Tally counts rows by outcome.
func (r *Report) Tally() map[form.Outcome]int {
	t := make(map[form.Outcome]int)
	for _, row := range r.Rows {
		t[row.Outcome()]++
	}
	return t
}

// Submitted returns how many rows reached the submit click.
func (r *Report) Submitted() int {
	n := 0
	for _, row := range r.Rows {
		if row.Submitted {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
