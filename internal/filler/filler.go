// Package filler types spreadsheet values into form fields located by
// anchor images, drives the dropdown key sequence and performs uploads.
package filler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"formfill/internal/browser"
	"formfill/internal/locator"
	"formfill/internal/logging"
)

// Field binds an anchor image to a spreadsheet column.
type Field struct {
	Anchor   string
	Column   string
	Dropdown bool
}

// Status is the outcome of one field step.
type Status string

const (
	StatusFilled  Status = "filled"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result records what happened to one field or step.
type Result struct {
	Anchor   string
	Column   string
	Status   Status
	Reason   string
	Duration time.Duration
}

// Options configures a Filler.
type Options struct {
	KeyInterval  time.Duration
	AfterType    time.Duration
	DialogWait   time.Duration
	UploadSettle time.Duration
	Dropdown     Dropdown
}

// DefaultOptions returns the stock timings and dropdown sequence.
func DefaultOptions() Options {
	return Options{
		KeyInterval:  50 * time.Millisecond,
		AfterType:    300 * time.Millisecond,
		DialogWait:   4 * time.Second,
		UploadSettle: time.Second,
		Dropdown:     DefaultDropdown(),
	}
}

// Clicker is the part of the locator the filler needs.
type Clicker interface {
	Click(ctx context.Context, anchor string) (locator.Match, error)
	ClickAndChooseFile(ctx context.Context, anchor, path string, dialogWait time.Duration) (locator.Match, error)
}

// Filler fills fields on a screen.
type Filler struct {
	screen  browser.Screen
	clicker Clicker
	opts    Options
}

// New creates a Filler.
func New(screen browser.Screen, clicker Clicker, opts Options) *Filler {
	return &Filler{screen: screen, clicker: clicker, opts: opts}
}

// IsDropdown reports whether f takes the dropdown key sequence.
func (fl *Filler) IsDropdown(f Field) bool {
	return f.Dropdown || fl.opts.Dropdown.Matches(f.Anchor)
}

// Fill clicks the field's anchor and types value. A blank value skips the
// field. Failures are reported in the result, never returned.
func (fl *Filler) Fill(ctx context.Context, f Field, value string) Result {
	start := time.Now()
	res := Result{Anchor: f.Anchor, Column: f.Column}
	done := func(s Status, reason string) Result {
		res.Status, res.Reason, res.Duration = s, reason, time.Since(start)
		return res
	}

	if strings.TrimSpace(value) == "" {
		logging.Filler("Skip %s: value missing for %q", f.Anchor, f.Column)
		return done(StatusSkipped, "value missing")
	}

	if _, err := fl.clicker.Click(ctx, f.Anchor); err != nil {
		return done(StatusFailed, err.Error())
	}

	if err := fl.screen.Type(ctx, value, fl.opts.KeyInterval); err != nil {
		logging.FillerWarn("Typing into %s failed: %v", f.Anchor, err)
		return done(StatusFailed, fmt.Sprintf("type: %v", err))
	}
	if err := browser.Sleep(ctx, fl.opts.AfterType); err != nil {
		return done(StatusFailed, err.Error())
	}

	if fl.IsDropdown(f) {
		if err := fl.opts.Dropdown.Run(ctx, fl.screen); err != nil {
			logging.FillerWarn("Dropdown sequence on %s failed: %v", f.Anchor, err)
			return done(StatusFailed, fmt.Sprintf("dropdown: %v", err))
		}
		logging.Filler("Dropdown selected %q on %s", value, f.Anchor)
	}

	logging.FillerDebug("Filled %s (%d chars)", f.Anchor, len([]rune(value)))
	return done(StatusFilled, "")
}

// Upload clicks anchor and hands path to the file chooser it opens, then
// waits for the upload to settle.
func (fl *Filler) Upload(ctx context.Context, anchor, path string) Result {
	start := time.Now()
	res := Result{Anchor: anchor}

	if _, err := fl.clicker.ClickAndChooseFile(ctx, anchor, path, fl.opts.DialogWait); err != nil {
		logging.FillerWarn("Upload via %s failed: %v", anchor, err)
		res.Status, res.Reason, res.Duration = StatusFailed, err.Error(), time.Since(start)
		return res
	}
	if err := browser.Sleep(ctx, fl.opts.UploadSettle); err != nil {
		res.Status, res.Reason, res.Duration = StatusFailed, err.Error(), time.Since(start)
		return res
	}

	logging.Filler("Uploaded %s", path)
	res.Status, res.Duration = StatusFilled, time.Since(start)
	return res
}
