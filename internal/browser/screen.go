// Package browser drives a Chrome viewport as the automation "screen".
// Captures, clicks, key presses, wheel scrolls and file choosers all go over
// the DevTools protocol, so runs behave the same headed or headless.
package browser

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"
)

// Screen is the surface the locator and filler operate on.
// Coordinates are viewport CSS pixels; the viewport runs at device scale 1,
// so they match screenshot pixels.
type Screen interface {
	// Open navigates the controlled tab to url, launching the browser if needed.
	Open(ctx context.Context, url string) error
	// WaitReady blocks until the current document has loaded.
	WaitReady(ctx context.Context) error
	// Capture returns the visible viewport.
	Capture(ctx context.Context) (image.Image, error)
	// Click performs a left click at (x, y).
	Click(ctx context.Context, x, y float64) error
	// Type enters text into the focused element, pausing interval between characters.
	Type(ctx context.Context, text string, interval time.Duration) error
	// Press sends a single named key.
	Press(ctx context.Context, key Key) error
	// Scroll turns the mouse wheel. Negative amounts scroll down.
	Scroll(ctx context.Context, amount float64) error
	// ClickAndChooseFile clicks (x, y), expects a file chooser to open and
	// answers it with path. ctx bounds the wait for the chooser.
	ClickAndChooseFile(ctx context.Context, x, y float64, path string) error
	// Close releases the browser.
	Close() error
}

// Key names a non-text key.
type Key string

const (
	KeyEnter      Key = "Enter"
	KeyTab        Key = "Tab"
	KeyEscape     Key = "Escape"
	KeyBackspace  Key = "Backspace"
	KeySpace      Key = "Space"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
)

var knownKeys = []Key{
	KeyEnter, KeyTab, KeyEscape, KeyBackspace, KeySpace,
	KeyArrowUp, KeyArrowDown, KeyArrowLeft, KeyArrowRight,
}

// ParseKey resolves a key name case-insensitively. "down" and "up" are
// accepted as shorthands for the arrow keys.
func ParseKey(name string) (Key, error) {
	n := strings.TrimSpace(name)
	switch strings.ToLower(n) {
	case "down":
		return KeyArrowDown, nil
	case "up":
		return KeyArrowUp, nil
	case "left":
		return KeyArrowLeft, nil
	case "right":
		return KeyArrowRight, nil
	case "esc":
		return KeyEscape, nil
	case "return":
		return KeyEnter, nil
	}
	for _, k := range knownKeys {
		if strings.EqualFold(string(k), n) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown key %q", name)
}

// Sleep waits for d or until ctx is done. Zero or negative d returns at once.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// New builds the backend named by cfg.Engine.
func New(cfg Config) (Screen, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", EngineRod:
		return NewRodScreen(cfg), nil
	case EngineChromedp:
		return NewChromedpScreen(cfg), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q (valid: %s, %s)", cfg.Engine, EngineRod, EngineChromedp)
	}
}
