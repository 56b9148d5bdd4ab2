// Package locator finds reference images (anchors) on the browser screen and
// clicks them.
package locator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"formfill/internal/browser"
	"formfill/internal/logging"

	"github.com/disintegration/imaging"
)

// Options configures a Locator.
type Options struct {
	// Dir holds the anchor images.
	Dir string
	// Confidence is the minimum match score in 0..1.
	Confidence float64
	// Timeout bounds how long Locate keeps polling. Zero means one attempt.
	Timeout time.Duration
	// PollInterval is the delay between captures while polling.
	PollInterval time.Duration
	// ClickSettle is the pause after a click.
	ClickSettle time.Duration
}

// DefaultOptions returns the stock matching parameters.
func DefaultOptions() Options {
	return Options{
		Dir:          "screenshots",
		Confidence:   0.9,
		Timeout:      5 * time.Second,
		PollInterval: 250 * time.Millisecond,
		ClickSettle:  500 * time.Millisecond,
	}
}

// Locator matches anchors against screen captures.
type Locator struct {
	screen browser.Screen
	opts   Options

	mu        sync.Mutex
	templates map[string]image.Image
}

// New creates a Locator over screen.
func New(screen browser.Screen, opts Options) *Locator {
	if opts.Confidence <= 0 {
		opts.Confidence = 0.9
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	return &Locator{
		screen:    screen,
		opts:      opts,
		templates: make(map[string]image.Image),
	}
}

// Path resolves an anchor name under the anchors directory.
func (l *Locator) Path(anchor string) string {
	return filepath.Join(l.opts.Dir, anchor)
}

// Template returns the decoded anchor, loading it on first use.
func (l *Locator) Template(anchor string) (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if img, ok := l.templates[anchor]; ok {
		return img, nil
	}

	path := l.Path(anchor)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrAnchorMissing)
		}
		return nil, err
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode anchor %s: %w", path, err)
	}
	l.templates[anchor] = img
	return img, nil
}

// Locate polls the screen until anchor is found or the timeout elapses.
func (l *Locator) Locate(ctx context.Context, anchor string) (Match, error) {
	tmpl, err := l.Template(anchor)
	if err != nil {
		if errors.Is(err, ErrAnchorMissing) {
			logging.LocatorWarn("Missing anchor image %s", anchor)
		}
		return Match{}, &LocateError{Anchor: anchor, Err: err}
	}

	timer := logging.StartTimer(logging.CategoryLocator, "locate "+anchor)
	defer timer.Stop()

	deadline := time.Now().Add(l.opts.Timeout)
	attempts := 0
	var last error
	for {
		attempts++
		shot, err := l.screen.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, &LocateError{Anchor: anchor, Err: ctx.Err()}
			}
			last = fmt.Errorf("capture failed: %w", err)
			logging.LocatorDebug("Capture for %s failed: %v", anchor, err)
		} else if m, ok, err := safeFind(shot, tmpl, l.opts.Confidence); err != nil {
			last = err
			logging.LocatorDebug("Matching %s failed: %v", anchor, err)
		} else if ok {
			logging.LocatorDebug("Found %s at %v (score %.3f, attempt %d)", anchor, m.Rect, m.Score, attempts)
			return m, nil
		} else {
			last = nil
		}

		if !time.Now().Add(l.opts.PollInterval).Before(deadline) {
			break
		}
		if err := browser.Sleep(ctx, l.opts.PollInterval); err != nil {
			return Match{}, &LocateError{Anchor: anchor, Err: err}
		}
	}

	if last == nil {
		last = ErrNotFound
	}
	logging.LocatorWarn("Not found on screen: %s (%d attempts)", anchor, attempts)
	return Match{}, &LocateError{Anchor: anchor, Attempts: attempts, Err: last}
}

// Click locates anchor, clicks its center and waits for the UI to settle.
func (l *Locator) Click(ctx context.Context, anchor string) (Match, error) {
	m, err := l.Locate(ctx, anchor)
	if err != nil {
		return m, err
	}
	c := m.Center()
	if err := l.screen.Click(ctx, float64(c.X), float64(c.Y)); err != nil {
		return m, &LocateError{Anchor: anchor, Err: fmt.Errorf("click failed: %w", err)}
	}
	logging.Locator("Clicked %s at (%d, %d)", anchor, c.X, c.Y)
	return m, browser.Sleep(ctx, l.opts.ClickSettle)
}

// ClickAndChooseFile clicks anchor and answers the file chooser it opens
// with path. dialogWait bounds how long the chooser may take to appear.
func (l *Locator) ClickAndChooseFile(ctx context.Context, anchor, path string, dialogWait time.Duration) (Match, error) {
	m, err := l.Locate(ctx, anchor)
	if err != nil {
		return m, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return m, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	chooseCtx := ctx
	if dialogWait > 0 {
		var cancel context.CancelFunc
		chooseCtx, cancel = context.WithTimeout(ctx, dialogWait)
		defer cancel()
	}

	c := m.Center()
	if err := l.screen.ClickAndChooseFile(chooseCtx, float64(c.X), float64(c.Y), abs); err != nil {
		return m, &LocateError{Anchor: anchor, Err: fmt.Errorf("file chooser: %w", err)}
	}
	logging.Locator("Chose %s via %s", abs, anchor)
	return m, nil
}

// safeFind converts a matcher panic on malformed images into an error.
func safeFind(screen, tmpl image.Image, threshold float64) (m Match, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("matching failed: %v", r)
		}
	}()
	m, ok = Find(screen, tmpl, threshold)
	return m, ok, nil
}
