package filler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"formfill/internal/browser"
)

// KeyStep is one entry of a dropdown sequence: a key press or a pause.
type KeyStep struct {
	Key   browser.Key
	Pause time.Duration
}

// Dropdown selects an option by pressing a fixed key sequence after the
// value is typed. The sequence encodes the target list's ordering and is
// not verified against what the page shows.
type Dropdown struct {
	// Match lists anchor substrings, compared case-insensitively, that
	// mark a field as a dropdown.
	Match []string
	Steps []KeyStep
}

// DefaultDropdown returns the sequence for the stock country picker.
func DefaultDropdown() Dropdown {
	return Dropdown{
		Match: []string{"country"},
		Steps: []KeyStep{
			{Key: browser.KeyArrowDown},
			{Pause: 200 * time.Millisecond},
			{Key: browser.KeyEnter},
			{Key: browser.KeyArrowDown},
			{Key: browser.KeyArrowDown},
			{Key: browser.KeyArrowDown},
			{Key: browser.KeyEnter},
		},
	}
}

// Matches reports whether anchor names a dropdown field.
func (d Dropdown) Matches(anchor string) bool {
	a := strings.ToLower(anchor)
	for _, m := range d.Match {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" && strings.Contains(a, m) {
			return true
		}
	}
	return false
}

// Run performs the sequence.
func (d Dropdown) Run(ctx context.Context, screen browser.Screen) error {
	for _, s := range d.Steps {
		if s.Key == "" {
			if err := browser.Sleep(ctx, s.Pause); err != nil {
				return err
			}
			continue
		}
		if err := screen.Press(ctx, s.Key); err != nil {
			return fmt.Errorf("press %s: %w", s.Key, err)
		}
	}
	return nil
}

// ParseKeySteps parses entries such as "ArrowDown", "enter" or
// "pause:200ms".
func ParseKeySteps(entries []string) ([]KeyStep, error) {
	steps := make([]KeyStep, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if rest, ok := strings.CutPrefix(strings.ToLower(e), "pause:"); ok {
			d, err := time.ParseDuration(strings.TrimSpace(rest))
			if err != nil {
				return nil, fmt.Errorf("invalid pause %q: %w", e, err)
			}
			steps = append(steps, KeyStep{Pause: d})
			continue
		}
		k, err := browser.ParseKey(e)
		if err != nil {
			return nil, err
		}
		steps = append(steps, KeyStep{Key: k})
	}
	return steps, nil
}
