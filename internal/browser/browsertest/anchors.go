package browsertest

import (
	"image"
	"image/color"
	"math/rand"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Pattern returns a w×h block of smooth deterministic noise, resembling the
// soft edges of a rendered widget. Distinct seeds give patterns whose
// correlation with each other is low.
func Pattern(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	cw, ch := w/10+2, h/10+2
	cells := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			v := uint8(rng.Intn(256))
			cells.SetNRGBA(x, y, color.NRGBA{R: v, G: uint8(rng.Intn(256)), B: v, A: 255})
		}
	}
	return imaging.Resize(cells, w, h, imaging.Linear)
}

// Noise returns a w×h block of black and white pixels chosen per pixel,
// resembling rendered label text where every pixel carries detail.
func Noise(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if rng.Intn(2) == 1 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// SaveAnchor writes img as dir/name and returns the path.
func SaveAnchor(dir, name string, img image.Image) (string, error) {
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		return "", err
	}
	return path, nil
}
