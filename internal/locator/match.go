package locator

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// Match is a template hit on the screen.
type Match struct {
	Rect  image.Rectangle
	Score float64
}

// Center returns the midpoint of the matched region.
func (m Match) Center() image.Point {
	return image.Pt((m.Rect.Min.X+m.Rect.Max.X)/2, (m.Rect.Min.Y+m.Rect.Max.Y)/2)
}

// flatStdDev is the luminance spread below which a template has no
// structure to correlate against.
const flatStdDev = 1.0

// toGrayMat converts img to a single channel 8-bit Mat. The caller closes it.
func toGrayMat(img image.Image) (gocv.Mat, error) {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	rgba, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, nrgba.Pix)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer rgba.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(rgba, &gray, gocv.ColorRGBAToGray)
	return gray, nil
}

// Find locates tmpl on screen. It reports the best match whose score is at
// least threshold. Scores are normalized correlation coefficients over
// luminance, so a pixel-exact copy scores 1.
func Find(screen, tmpl image.Image, threshold float64) (Match, bool) {
	sb, tb := screen.Bounds(), tmpl.Bounds()
	if tb.Dx() == 0 || tb.Dy() == 0 || tb.Dx() > sb.Dx() || tb.Dy() > sb.Dy() {
		return Match{}, false
	}

	s, err := toGrayMat(screen)
	if err != nil {
		return Match{}, false
	}
	defer s.Close()
	t, err := toGrayMat(tmpl)
	if err != nil {
		return Match{}, false
	}
	defer t.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	var score float64
	var at image.Point
	if isFlat(t) {
		// Correlation is undefined for a flat template: only a flat window
		// of the same shade matches.
		gocv.MatchTemplate(s, t, &result, gocv.TmSqdiff, mask)
		minVal, _, minLoc, _ := gocv.MinMaxLoc(result)
		rms := math.Sqrt(math.Max(float64(minVal), 0) / float64(tb.Dx()*tb.Dy()))
		score, at = 1-rms/255, minLoc
	} else {
		gocv.MatchTemplate(s, t, &result, gocv.TmCcoeffNormed, mask)
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
		score, at = float64(maxVal), maxLoc
	}
	if math.IsNaN(score) || math.IsInf(score, 0) || score < threshold {
		return Match{}, false
	}
	score = math.Min(score, 1)

	origin := sb.Min.Add(at)
	return Match{
		Rect:  image.Rectangle{Min: origin, Max: origin.Add(image.Pt(tb.Dx(), tb.Dy()))},
		Score: score,
	}, true
}

func isFlat(gray gocv.Mat) bool {
	mean := gocv.NewMat()
	defer mean.Close()
	dev := gocv.NewMat()
	defer dev.Close()
	gocv.MeanStdDev(gray, &mean, &dev)
	return dev.GetDoubleAt(0, 0) < flatStdDev
}
