package form

import (
	"bytes"
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"formfill/internal/browser/browsertest"
	"formfill/internal/download"
	"formfill/internal/filler"
	"formfill/internal/locator"
	"formfill/internal/sheet"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness is a fake form page with every stock anchor rendered on it.
type harness struct {
	screen    *browsertest.Fake
	processor *Processor
	imageURL  string
	badURL    string
	submitX   float64
	submitY   float64
}

func quickLayout() Layout {
	l := DefaultLayout()
	for i := range l.Groups {
		l.Groups[i].Settle = 0
	}
	l.Upload.PauseAfter = 0
	l.Submit.ScrollSettle = 0
	l.Submit.PauseAfter = 0
	return l
}

func newHarness(t *testing.T, skipAnchors ...string) *harness {
	t.Helper()

	var png bytes.Buffer
	require.NoError(t, imaging.Encode(&png, imaging.New(16, 16, color.NRGBA{B: 255, A: 255}), imaging.PNG))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(png.Bytes())
	}))
	t.Cleanup(srv.Close)

	skip := make(map[string]bool)
	for _, a := range skipAnchors {
		skip[a] = true
	}

	layout := quickLayout()
	dir := t.TempDir()
	screen := browsertest.New(640, 480)
	h := &harness{screen: screen, imageURL: srv.URL + "/photo.png", badURL: srv.URL + "/gone.png"}
	for i, name := range layout.Anchors() {
		img := browsertest.Pattern(96, 32, int64(1000+i))
		_, err := browsertest.SaveAnchor(dir, name, img)
		require.NoError(t, err)
		if skip[name] {
			continue
		}
		x, y := 20+(i%4)*150, 20+(i/4)*80
		screen.Place(img, x, y)
		if name == layout.Submit.Anchor {
			h.submitX, h.submitY = float64(x+48), float64(y+16)
		}
	}

	loc := locator.New(screen, locator.Options{Dir: dir, Confidence: 0.9})
	fopts := filler.DefaultOptions()
	fopts.KeyInterval, fopts.AfterType, fopts.UploadSettle = 0, 0, 0
	fopts.Dropdown.Steps = []filler.KeyStep{{Key: "ArrowDown"}, {Key: "Enter"}}
	fl := filler.New(screen, loc, fopts)

	dl := download.New(download.Options{Dir: t.TempDir()})
	t.Cleanup(dl.Close)

	h.processor = NewProcessor(screen, loc, fl, dl, layout)
	return h
}

func fullRow(idx int, imageURL string) sheet.Row {
	return sheet.NewRow(idx, map[string]string{
		"First Name":     "Ada",
		"Last Name":      "Lovelace",
		"Mobile":         "5550100",
		"Email":          "ada@example.com",
		"Address":        "12 St James's Square",
		"City":           "London",
		"State":          "Greater London",
		"Postal Code":    "SW1Y 4JH",
		"Country":        "United Kingdom",
		"Address Line 2": "Flat 1",
		"image url:":     imageURL,
	})
}

// segments splits recorded actions at each submit click.
func (h *harness) segments() [][]browsertest.Action {
	var out [][]browsertest.Action
	var cur []browsertest.Action
	for _, a := range h.screen.Actions() {
		cur = append(cur, a)
		if a.Kind == browsertest.ActionClick && a.X == h.submitX && a.Y == h.submitY {
			out = append(out, cur)
			cur = nil
		}
	}
	return out
}

func count(actions []browsertest.Action, kind string) int {
	n := 0
	for _, a := range actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func TestProcess_ThreeRowsEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rep := h.processor.Process(ctx, fullRow(i, h.imageURL))
		require.Equal(t, OutcomeComplete, rep.Outcome(), "row %d: %+v", i, rep)
		assert.Len(t, rep.Fields, 10)
	}

	segs := h.segments()
	require.Len(t, segs, 3, "exactly one submit per row")
	for i, seg := range segs {
		assert.Equal(t, 2, count(seg, browsertest.ActionScroll), "row %d scrolls", i)
		assert.Equal(t, 10, count(seg, browsertest.ActionType), "row %d fills", i)
		assert.Equal(t, 1, count(seg, browsertest.ActionChooseFile), "row %d uploads", i)
	}

	scrolls := 0
	for _, a := range segs[0] {
		if a.Kind == browsertest.ActionScroll {
			if scrolls == 0 {
				assert.Equal(t, -1000.0, a.Amount)
			} else {
				assert.Equal(t, -500.0, a.Amount)
			}
			scrolls++
		}
	}
}

func TestProcess_OrderWithinRow(t *testing.T) {
	h := newHarness(t)
	h.processor.Process(context.Background(), fullRow(0, h.imageURL))

	var order []string
	for _, a := range h.screen.Actions() {
		if a.Kind == browsertest.ActionType {
			order = append(order, a.Text)
		}
	}
	assert.Equal(t, []string{
		"Ada", "Lovelace", "5550100", "ada@example.com", "12 St James's Square",
		"London", "Greater London", "SW1Y 4JH", "United Kingdom", "Flat 1",
	}, order)

	kinds := h.screen.Kinds()
	firstScroll, lastType, choose := -1, -1, -1
	for i, k := range kinds {
		switch k {
		case browsertest.ActionScroll:
			if firstScroll < 0 {
				firstScroll = i
			}
		case browsertest.ActionType:
			lastType = i
		case browsertest.ActionChooseFile:
			choose = i
		}
	}
	assert.Less(t, lastType, choose, "upload follows the fields")
	assert.Greater(t, firstScroll, 0)
}

func TestProcess_MissingValuesSkipOnlyThoseFields(t *testing.T) {
	h := newHarness(t)

	values := map[string]string{
		"First Name": "Grace",
		"Email":      "  ",
		"City":       "Arlington",
		"image url:": h.imageURL,
	}
	rep := h.processor.Process(context.Background(), sheet.NewRow(0, values))

	byColumn := make(map[string]filler.Result)
	for _, r := range rep.Fields {
		byColumn[r.Column] = r
	}
	assert.Equal(t, filler.StatusFilled, byColumn["First Name"].Status)
	assert.Equal(t, filler.StatusFilled, byColumn["City"].Status)
	assert.Equal(t, filler.StatusSkipped, byColumn["Email"].Status)
	assert.Equal(t, "value missing", byColumn["Email"].Reason)
	assert.Equal(t, filler.StatusSkipped, byColumn["State"].Status)
	assert.Equal(t, "column not found", byColumn["State"].Reason)

	assert.True(t, rep.Submitted)
	assert.Equal(t, OutcomePartial, rep.Outcome())
	assert.Equal(t, Counts{Filled: 3, Skipped: 8}, rep.Counts())
	assert.Equal(t, 2, h.screen.Count(browsertest.ActionType))
}

func TestProcess_BadImageURLSkipsOnlyUpload(t *testing.T) {
	h := newHarness(t)

	for _, url := range []string{"", "not a url", h.badURL} {
		h.screen.Reset()
		rep := h.processor.Process(context.Background(), fullRow(0, url))

		assert.NotEqual(t, filler.StatusFilled, rep.Upload.Status, "url %q", url)
		assert.Zero(t, h.screen.Count(browsertest.ActionChooseFile))
		assert.Equal(t, 10, h.screen.Count(browsertest.ActionType))
		assert.Equal(t, 2, h.screen.Count(browsertest.ActionScroll))
		assert.True(t, rep.Submitted)
		assert.Equal(t, OutcomePartial, rep.Outcome())
	}
}

func TestProcess_AnchorMissingFromScreen(t *testing.T) {
	h := newHarness(t, "postal.png")

	rep := h.processor.Process(context.Background(), fullRow(0, h.imageURL))
	failed := 0
	for _, r := range rep.Fields {
		if r.Status == filler.StatusFailed {
			failed++
			assert.Equal(t, "postal.png", r.Anchor)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 9, h.screen.Count(browsertest.ActionType))
	assert.True(t, rep.Submitted)
}

func TestProcess_SubmitNotFound(t *testing.T) {
	h := newHarness(t, "submit.png")

	rep := h.processor.Process(context.Background(), fullRow(0, h.imageURL))
	assert.False(t, rep.Submitted)
	assert.Equal(t, filler.StatusFailed, rep.Submit.Status)
	assert.Equal(t, OutcomeFailed, rep.Outcome())
	assert.Equal(t, 2, h.screen.Count(browsertest.ActionScroll))
}

func TestProcess_PausesAfterSubmitEvenWhenNotFound(t *testing.T) {
	h := newHarness(t, "submit.png")
	h.processor.layout.Submit.PauseAfter = 300 * time.Millisecond

	rep := h.processor.Process(context.Background(), fullRow(0, h.imageURL))
	assert.False(t, rep.Submitted)
	assert.GreaterOrEqual(t, rep.Duration, 300*time.Millisecond)
}

func TestProcess_CanceledStopsEarly(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	rep := h.processor.Process(ctx, fullRow(0, h.imageURL))
	assert.False(t, rep.Submitted)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Zero(t, h.screen.Count(browsertest.ActionType))
}

func TestLayoutHelpers(t *testing.T) {
	l := DefaultLayout()
	assert.Len(t, l.Fields(), 10)
	assert.Len(t, l.Columns(), 11)
	assert.Equal(t, "image url:", l.Columns()[10])
	assert.Len(t, l.Anchors(), 12)
	assert.Equal(t, "submit.png", l.Anchors()[11])
}

func TestRowReportOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSkipped, RowReport{Skipped: true}.Outcome())
	assert.Equal(t, OutcomeFailed, RowReport{}.Outcome())
	assert.Equal(t, OutcomeComplete, RowReport{
		Submitted: true,
		Fields:    []filler.Result{{Status: filler.StatusFilled}},
	}.Outcome())
	assert.Equal(t, OutcomePartial, RowReport{
		Submitted: true,
		Fields:    []filler.Result{{Status: filler.StatusFilled}},
		Upload:    filler.Result{Status: filler.StatusFailed},
	}.Outcome())
}
