package locator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"formfill/internal/browser/browsertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(dir string) Options {
	return Options{
		Dir:          dir,
		Confidence:   0.9,
		Timeout:      0,
		PollInterval: time.Millisecond,
		ClickSettle:  0,
	}
}

func setup(t *testing.T) (*browsertest.Fake, string) {
	t.Helper()
	dir := t.TempDir()
	screen := browsertest.New(400, 300)

	submit := browsertest.Pattern(96, 32, 42)
	_, err := browsertest.SaveAnchor(dir, "submit.png", submit)
	require.NoError(t, err)
	screen.Place(submit, 150, 200)

	_, err = browsertest.SaveAnchor(dir, "offscreen.png", browsertest.Pattern(96, 32, 43))
	require.NoError(t, err)
	return screen, dir
}

func TestLocate_Found(t *testing.T) {
	screen, dir := setup(t)
	l := New(screen, fastOptions(dir))

	m, err := l.Locate(context.Background(), "submit.png")
	require.NoError(t, err)
	assert.Equal(t, 150, m.Rect.Min.X)
	assert.Equal(t, 200, m.Rect.Min.Y)
	assert.GreaterOrEqual(t, m.Score, 0.9)
	assert.Equal(t, 1, screen.Captures())
}

func TestLocate_MissingAnchorFile(t *testing.T) {
	screen, dir := setup(t)
	l := New(screen, fastOptions(dir))

	_, err := l.Locate(context.Background(), "nope.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnchorMissing)

	var le *LocateError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "nope.png", le.Anchor)
	assert.Zero(t, screen.Captures(), "no capture without an anchor")
}

func TestLocate_NotFoundPollsUntilTimeout(t *testing.T) {
	screen, dir := setup(t)
	opts := fastOptions(dir)
	opts.Timeout = 60 * time.Millisecond
	opts.PollInterval = 10 * time.Millisecond
	l := New(screen, opts)

	_, err := l.Locate(context.Background(), "offscreen.png")
	assert.ErrorIs(t, err, ErrNotFound)

	var le *LocateError
	require.ErrorAs(t, err, &le)
	assert.Greater(t, le.Attempts, 1)
	assert.Equal(t, le.Attempts, screen.Captures())
}

func TestLocate_AppearsWhilePolling(t *testing.T) {
	screen, dir := setup(t)
	opts := fastOptions(dir)
	opts.Timeout = 2 * time.Second
	opts.PollInterval = 5 * time.Millisecond
	l := New(screen, opts)

	late, err := l.Template("offscreen.png")
	require.NoError(t, err)
	go func() {
		time.Sleep(30 * time.Millisecond)
		screen.Place(late, 10, 10)
	}()

	m, err := l.Locate(context.Background(), "offscreen.png")
	require.NoError(t, err)
	assert.Equal(t, 10, m.Rect.Min.X)
	assert.Greater(t, screen.Captures(), 1)
}

func TestLocate_CaptureFailureIsNotFound(t *testing.T) {
	screen, dir := setup(t)
	screen.CaptureErr = errors.New("target closed")
	l := New(screen, fastOptions(dir))

	_, err := l.Locate(context.Background(), "submit.png")
	require.Error(t, err)
	assert.ErrorContains(t, err, "target closed")
	var le *LocateError
	assert.ErrorAs(t, err, &le)
}

func TestLocate_CanceledContext(t *testing.T) {
	screen, dir := setup(t)
	opts := fastOptions(dir)
	opts.Timeout = time.Minute
	opts.PollInterval = time.Second
	l := New(screen, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := l.Locate(ctx, "offscreen.png")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClick_ClicksCenter(t *testing.T) {
	screen, dir := setup(t)
	l := New(screen, fastOptions(dir))

	_, err := l.Click(context.Background(), "submit.png")
	require.NoError(t, err)

	actions := screen.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, browsertest.ActionClick, actions[0].Kind)
	assert.Equal(t, 198.0, actions[0].X)
	assert.Equal(t, 216.0, actions[0].Y)
}

func TestClick_NotFoundDoesNotClick(t *testing.T) {
	screen, dir := setup(t)
	l := New(screen, fastOptions(dir))

	_, err := l.Click(context.Background(), "offscreen.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, screen.Count(browsertest.ActionClick))
}

func TestClickAndChooseFile(t *testing.T) {
	screen, dir := setup(t)
	l := New(screen, fastOptions(dir))

	rel := filepath.Join(t.TempDir(), "image_0.jpg")
	require.NoError(t, os.WriteFile(rel, []byte("x"), 0644))

	_, err := l.ClickAndChooseFile(context.Background(), "submit.png", rel, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{browsertest.ActionClick, browsertest.ActionChooseFile}, screen.Kinds())

	chosen := screen.Actions()[1].Text
	assert.True(t, filepath.IsAbs(chosen))

	screen.Reset()
	screen.NoFileChooser = true
	_, err = l.ClickAndChooseFile(context.Background(), "submit.png", rel, time.Second)
	assert.ErrorContains(t, err, "file chooser")
}

func TestTemplateIsCached(t *testing.T) {
	_, dir := setup(t)
	l := New(browsertest.New(10, 10), fastOptions(dir))

	first, err := l.Template("submit.png")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "submit.png")))

	second, err := l.Template("submit.png")
	require.NoError(t, err)
	assert.Same(t, first, second)
}
