package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"formfill/cmd/formfill/ui"
	"formfill/internal/form"
	"formfill/internal/run"
	"formfill/internal/store"
)

func styles() ui.Styles {
	return ui.DefaultStyles()
}

func printRunReport(w io.Writer, rep *run.Report) {
	s := styles()

	t := ui.NewSimpleTable(fmt.Sprintf("Run %s", rep.RunID), []string{"Row", "Outcome", "Filled", "Skipped", "Failed", "Time", "Notes"})
	for _, r := range rep.Rows {
		c := r.Counts()
		t.AddRow(
			strconv.Itoa(r.Index+1),
			s.Status(string(r.Outcome())),
			strconv.Itoa(c.Filled),
			strconv.Itoa(c.Skipped),
			strconv.Itoa(c.Failed),
			r.Duration.Round(100*time.Millisecond).String(),
			rowNotes(r),
		)
	}
	fmt.Fprint(w, t.View(s))

	tally := rep.Tally()
	summary := fmt.Sprintf("%d rows: %d complete, %d partial, %d failed, %d skipped in %s",
		len(rep.Rows), tally[form.OutcomeComplete], tally[form.OutcomePartial],
		tally[form.OutcomeFailed], tally[form.OutcomeSkipped], rep.Duration().Round(time.Second))
	fmt.Fprintln(w, s.Bold.Render(summary))
	if n := tally[form.OutcomeSkipped]; n > 0 {
		fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf("%d rows skipped as already submitted (use --force)", n)))
	}
	if rep.Cancelled {
		fmt.Fprintln(w, s.Warning.Render("Run cancelled before all rows were processed."))
	}
}

// rowNotes lists the first few non-filled steps of a row.
func rowNotes(r form.RowReport) string {
	var notes []string
	add := func(anchor, reason string) {
		if reason != "" {
			notes = append(notes, anchor+": "+reason)
		}
	}
	for _, f := range r.Fields {
		add(f.Anchor, f.Reason)
	}
	add(r.Upload.Anchor, r.Upload.Reason)
	add(r.Submit.Anchor, r.Submit.Reason)
	if r.Skipped {
		notes = append(notes, "already submitted")
	}
	if len(notes) > 3 {
		notes = append(notes[:3], fmt.Sprintf("+%d more", len(notes)-3))
	}
	return strings.Join(notes, "; ")
}

func printHistory(w io.Writer, runs []store.RunSummary) {
	s := styles()
	if len(runs) == 0 {
		fmt.Fprintln(w, s.Muted.Render("No runs recorded."))
		return
	}

	t := ui.NewSimpleTable("Runs", []string{"Run", "Started", "Status", "Rows", "Complete", "Partial", "Failed", "Skipped", "Form"})
	for _, r := range runs {
		t.AddRow(
			r.ID,
			r.Started.Local().Format("2006-01-02 15:04"),
			s.Status(r.Status),
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Complete),
			strconv.Itoa(r.Partial),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
			r.FormURL,
		)
	}
	fmt.Fprint(w, t.View(s))
}

func printRunRows(w io.Writer, runID string, rows []store.RowRecord) {
	s := styles()
	if len(rows) == 0 {
		fmt.Fprintln(w, s.Muted.Render("Run "+runID+" recorded no rows."))
		return
	}

	t := ui.NewSimpleTable("Run "+runID, []string{"Row", "Outcome", "Step", "Column", "Status", "Reason"})
	for _, r := range rows {
		row := strconv.Itoa(r.Index + 1)
		if len(r.Fields) == 0 {
			t.AddRow(row, s.Status(r.Outcome), "", "", "", "")
			continue
		}
		for i, f := range r.Fields {
			outcome := ""
			if i == 0 {
				outcome = s.Status(r.Outcome)
			}
			t.AddRow(row, outcome, f.Anchor, f.Column, s.Status(f.Status), f.Reason)
			row = ""
		}
	}
	fmt.Fprint(w, t.View(s))
}
