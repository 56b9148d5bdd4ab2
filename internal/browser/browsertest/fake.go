// Package browsertest provides an in-memory browser.Screen for tests.
// Anchors placed on its canvas are found by the real matcher, and every
// interaction is recorded for assertions.
package browsertest

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"formfill/internal/browser"
)

// Action kinds recorded by Fake.
const (
	ActionOpen       = "open"
	ActionReady      = "ready"
	ActionClick      = "click"
	ActionType       = "type"
	ActionPress      = "press"
	ActionScroll     = "scroll"
	ActionChooseFile = "choose-file"
	ActionClose      = "close"
)

// Action is one recorded interaction.
type Action struct {
	Kind   string
	X, Y   float64
	Text   string
	Key    browser.Key
	Amount float64
}

// Fake implements browser.Screen over a static canvas.
type Fake struct {
	mu       sync.Mutex
	canvas   *image.NRGBA
	actions  []Action
	captures int

	// CaptureErr, when set, is returned by every Capture.
	CaptureErr error
	// NoFileChooser makes ClickAndChooseFile fail as if no dialog opened.
	NoFileChooser bool
}

var _ browser.Screen = (*Fake)(nil)

// New creates a w×h canvas filled with a flat background.
func New(w, h int) *Fake {
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.NRGBA{R: 240, G: 240, B: 240, A: 255}}, image.Point{}, draw.Src)
	return &Fake{canvas: canvas}
}

// Place draws img with its top-left corner at (x, y).
func (f *Fake) Place(img image.Image, x, y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := img.Bounds()
	draw.Draw(f.canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
}

// Actions returns a copy of the recorded interactions.
func (f *Fake) Actions() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Action, len(f.actions))
	copy(out, f.actions)
	return out
}

// Count returns how many actions of kind were recorded.
func (f *Fake) Count(kind string) int {
	n := 0
	for _, a := range f.Actions() {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Kinds returns the recorded action kinds in order.
func (f *Fake) Kinds() []string {
	actions := f.Actions()
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

// Captures returns how many screenshots were taken.
func (f *Fake) Captures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

// Reset clears recorded actions.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = nil
	f.captures = 0
}

func (f *Fake) record(a Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
}

func (f *Fake) Open(ctx context.Context, url string) error {
	f.record(Action{Kind: ActionOpen, Text: url})
	return ctx.Err()
}

func (f *Fake) WaitReady(ctx context.Context) error {
	f.record(Action{Kind: ActionReady})
	return ctx.Err()
}

func (f *Fake) Capture(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	snapshot := image.NewNRGBA(f.canvas.Bounds())
	copy(snapshot.Pix, f.canvas.Pix)
	return snapshot, ctx.Err()
}

func (f *Fake) Click(ctx context.Context, x, y float64) error {
	f.record(Action{Kind: ActionClick, X: x, Y: y})
	return ctx.Err()
}

func (f *Fake) Type(ctx context.Context, text string, _ time.Duration) error {
	f.record(Action{Kind: ActionType, Text: text})
	return ctx.Err()
}

func (f *Fake) Press(ctx context.Context, key browser.Key) error {
	f.record(Action{Kind: ActionPress, Key: key})
	return ctx.Err()
}

func (f *Fake) Scroll(ctx context.Context, amount float64) error {
	f.record(Action{Kind: ActionScroll, Amount: amount})
	return ctx.Err()
}

func (f *Fake) ClickAndChooseFile(ctx context.Context, x, y float64, path string) error {
	f.record(Action{Kind: ActionClick, X: x, Y: y})
	if f.NoFileChooser {
		return errors.New("file chooser did not open")
	}
	f.record(Action{Kind: ActionChooseFile, Text: path})
	return ctx.Err()
}

func (f *Fake) Close() error {
	f.record(Action{Kind: ActionClose})
	return nil
}
