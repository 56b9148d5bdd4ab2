package locator

import (
	"context"
	"image"
	"image/color"
	"testing"

	"formfill/internal/browser/browsertest"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func canvasWith(w, h int, placements map[image.Point]image.Image) image.Image {
	f := browsertest.New(w, h)
	for at, img := range placements {
		f.Place(img, at.X, at.Y)
	}
	shot, _ := f.Capture(context.Background())
	return shot
}

func TestFind_ExactPlacement(t *testing.T) {
	sizes := []image.Point{{12, 10}, {40, 18}, {80, 40}, {160, 72}}
	for i, sz := range sizes {
		tmpl := browsertest.Pattern(sz.X, sz.Y, int64(i+1))
		at := image.Pt(101+i, 53+2*i)
		screen := canvasWith(480, 320, map[image.Point]image.Image{at: tmpl})

		m, ok := Find(screen, tmpl, 0.9)
		require.True(t, ok, "size %v", sz)
		assert.Equal(t, image.Rect(at.X, at.Y, at.X+sz.X, at.Y+sz.Y), m.Rect, "size %v", sz)
		assert.InDelta(t, 1.0, m.Score, 1e-4)
		assert.Equal(t, image.Pt(at.X+sz.X/2, at.Y+sz.Y/2), m.Center())
	}
}

func TestFind_PicksTheRightAnchor(t *testing.T) {
	a := browsertest.Pattern(60, 20, 11)
	b := browsertest.Pattern(60, 20, 12)
	screen := canvasWith(400, 300, map[image.Point]image.Image{
		image.Pt(20, 30):   a,
		image.Pt(200, 180): b,
	})

	m, ok := Find(screen, b, 0.9)
	require.True(t, ok)
	assert.Equal(t, image.Pt(200, 180), m.Rect.Min)

	absent := browsertest.Pattern(60, 20, 13)
	_, ok = Find(screen, absent, 0.9)
	assert.False(t, ok)
}

func TestFind_ToleratesSlightRenderingDifferences(t *testing.T) {
	tmpl := browsertest.Pattern(64, 24, 5)
	rendered := imaging.AdjustBrightness(tmpl, 8)
	screen := canvasWith(320, 200, map[image.Point]image.Image{image.Pt(77, 91): rendered})

	m, ok := Find(screen, tmpl, 0.9)
	require.True(t, ok)
	assert.Equal(t, image.Pt(77, 91), m.Rect.Min)
}

func TestFind_Degenerate(t *testing.T) {
	screen := canvasWith(100, 80, nil)

	_, ok := Find(screen, browsertest.Pattern(120, 10, 1), 0.9)
	assert.False(t, ok, "template wider than screen")

	_, ok = Find(screen, image.NewNRGBA(image.Rect(0, 0, 0, 0)), 0.9)
	assert.False(t, ok, "empty template")

	flatDark := imaging.New(16, 16, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	_, ok = Find(screen, flatDark, 0.9)
	assert.False(t, ok, "flat template of another shade")

	flatBackground := imaging.New(16, 16, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	_, ok = Find(screen, flatBackground, 0.9)
	assert.True(t, ok, "flat template of the same shade")
}

func TestFind_FineDetailAtEverySubOffset(t *testing.T) {
	tmpl := browsertest.Noise(160, 48, 7)
	for dy := 0; dy < 8; dy++ {
		for dx := 0; dx < 8; dx++ {
			at := image.Pt(96+dx, 56+dy)
			screen := canvasWith(480, 240, map[image.Point]image.Image{at: tmpl})

			m, ok := Find(screen, tmpl, 0.9)
			require.True(t, ok, "at %v", at)
			assert.Equal(t, image.Rect(at.X, at.Y, at.X+160, at.Y+48), m.Rect, "at %v", at)
			assert.GreaterOrEqual(t, m.Score, 0.9, "at %v", at)
		}
	}
}

func TestFind_FineDetailAmongDistractors(t *testing.T) {
	want := browsertest.Noise(90, 24, 21)
	screen := canvasWith(400, 300, map[image.Point]image.Image{
		image.Pt(13, 17):   browsertest.Noise(90, 24, 22),
		image.Pt(201, 143): want,
		image.Pt(37, 250):  browsertest.Noise(90, 24, 23),
	})

	m, ok := Find(screen, want, 0.9)
	require.True(t, ok)
	assert.Equal(t, image.Pt(201, 143), m.Rect.Min)

	_, ok = Find(screen, browsertest.Noise(90, 24, 24), 0.9)
	assert.False(t, ok)
}

func TestFind_OffsetScreenBounds(t *testing.T) {
	tmpl := browsertest.Noise(40, 16, 3)
	screen := canvasWith(200, 120, map[image.Point]image.Image{image.Pt(61, 29): tmpl})
	sub := screen.(interface {
		SubImage(image.Rectangle) image.Image
	}).SubImage(image.Rect(50, 20, 200, 120))

	m, ok := Find(sub, tmpl, 0.9)
	require.True(t, ok)
	assert.Equal(t, image.Pt(61, 29), m.Rect.Min, "rectangles stay in screen coordinates")
}
