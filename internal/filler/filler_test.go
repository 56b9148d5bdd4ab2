package filler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"formfill/internal/browser"
	"formfill/internal/browser/browsertest"
	"formfill/internal/locator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickOptions() Options {
	opts := DefaultOptions()
	opts.KeyInterval = 0
	opts.AfterType = 0
	opts.DialogWait = time.Second
	opts.UploadSettle = 0
	opts.Dropdown.Steps = []KeyStep{
		{Key: browser.KeyArrowDown},
		{Pause: time.Millisecond},
		{Key: browser.KeyEnter},
		{Key: browser.KeyArrowDown},
		{Key: browser.KeyArrowDown},
		{Key: browser.KeyArrowDown},
		{Key: browser.KeyEnter},
	}
	return opts
}

// newFiller places one anchor per name on a fake screen.
func newFiller(t *testing.T, anchors ...string) (*Filler, *browsertest.Fake) {
	t.Helper()
	dir := t.TempDir()
	screen := browsertest.New(480, 360)
	for i, name := range anchors {
		img := browsertest.Pattern(96, 32, int64(100+i))
		_, err := browsertest.SaveAnchor(dir, name, img)
		require.NoError(t, err)
		screen.Place(img, 20+(i%3)*150, 20+(i/3)*60)
	}
	loc := locator.New(screen, locator.Options{Dir: dir, Confidence: 0.9})
	return New(screen, loc, quickOptions()), screen
}

func TestFill_TypesValue(t *testing.T) {
	fl, screen := newFiller(t, "first_name.png")

	res := fl.Fill(context.Background(), Field{Anchor: "first_name.png", Column: "First Name"}, "Ada")
	assert.Equal(t, StatusFilled, res.Status)
	assert.Equal(t, "First Name", res.Column)
	assert.Equal(t, []string{browsertest.ActionClick, browsertest.ActionType}, screen.Kinds())
	assert.Equal(t, "Ada", screen.Actions()[1].Text)
}

func TestFill_AbsentValueIsNoOp(t *testing.T) {
	fl, screen := newFiller(t, "email.png")

	for _, v := range []string{"", "   "} {
		res := fl.Fill(context.Background(), Field{Anchor: "email.png", Column: "Email"}, v)
		assert.Equal(t, StatusSkipped, res.Status)
		assert.Equal(t, "value missing", res.Reason)
	}
	assert.Empty(t, screen.Actions())
	assert.Zero(t, screen.Captures())
}

func TestFill_AnchorNotOnScreen(t *testing.T) {
	fl, screen := newFiller(t, "city.png")

	res := fl.Fill(context.Background(), Field{Anchor: "state.png", Column: "State"}, "CA")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "state.png")
	assert.Empty(t, screen.Actions(), "nothing typed when the anchor is missing")
}

func TestFill_DropdownSequence(t *testing.T) {
	for _, anchor := range []string{"country.png", "Country.png", "COUNTRY_field.png"} {
		t.Run(anchor, func(t *testing.T) {
			fl, screen := newFiller(t, anchor)

			res := fl.Fill(context.Background(), Field{Anchor: anchor, Column: "Country"}, "India")
			require.Equal(t, StatusFilled, res.Status)

			var keys []browser.Key
			for _, a := range screen.Actions() {
				if a.Kind == browsertest.ActionPress {
					keys = append(keys, a.Key)
				}
			}
			assert.Equal(t, []browser.Key{
				browser.KeyArrowDown, browser.KeyEnter,
				browser.KeyArrowDown, browser.KeyArrowDown, browser.KeyArrowDown, browser.KeyEnter,
			}, keys)
		})
	}
}

func TestFill_ExplicitDropdownFlag(t *testing.T) {
	fl, screen := newFiller(t, "region.png")

	res := fl.Fill(context.Background(), Field{Anchor: "region.png", Column: "Region", Dropdown: true}, "EU")
	require.Equal(t, StatusFilled, res.Status)
	assert.Equal(t, 6, screen.Count(browsertest.ActionPress))
}

func TestFill_PlainFieldPressesNoKeys(t *testing.T) {
	fl, screen := newFiller(t, "city.png")

	fl.Fill(context.Background(), Field{Anchor: "city.png", Column: "City"}, "Paris")
	assert.Zero(t, screen.Count(browsertest.ActionPress))
}

func TestIsDropdown(t *testing.T) {
	fl := New(nil, nil, DefaultOptions())
	assert.True(t, fl.IsDropdown(Field{Anchor: "Country.png"}))
	assert.True(t, fl.IsDropdown(Field{Anchor: "country.png"}))
	assert.False(t, fl.IsDropdown(Field{Anchor: "city.png"}))
	assert.True(t, fl.IsDropdown(Field{Anchor: "city.png", Dropdown: true}))
}

func TestUpload(t *testing.T) {
	fl, screen := newFiller(t, "image.png")
	path := filepath.Join(t.TempDir(), "image_0.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0644))

	res := fl.Upload(context.Background(), "image.png", path)
	assert.Equal(t, StatusFilled, res.Status)
	assert.Equal(t, 1, screen.Count(browsertest.ActionChooseFile))

	screen.NoFileChooser = true
	res = fl.Upload(context.Background(), "image.png", path)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "file chooser")
}

func TestParseKeySteps(t *testing.T) {
	steps, err := ParseKeySteps([]string{"ArrowDown", "pause:200ms", "enter", " Pause: 1s "})
	require.NoError(t, err)
	assert.Equal(t, []KeyStep{
		{Key: browser.KeyArrowDown},
		{Pause: 200 * time.Millisecond},
		{Key: browser.KeyEnter},
		{Pause: time.Second},
	}, steps)

	_, err = ParseKeySteps([]string{"pause:soon"})
	assert.Error(t, err)
	_, err = ParseKeySteps([]string{"Hyper"})
	assert.Error(t, err)
}

func TestDefaultDropdownMatchesStockSequence(t *testing.T) {
	steps, err := ParseKeySteps([]string{"ArrowDown", "pause:200ms", "Enter", "ArrowDown", "ArrowDown", "ArrowDown", "Enter"})
	require.NoError(t, err)
	assert.Equal(t, DefaultDropdown().Steps, steps)
}
