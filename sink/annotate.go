package sink

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/nvr-ai/go-motion/pipeline"
)

// goldenAngle spreads successive hues so neighbouring regions get distinct
// colours.
const goldenAngle = 137.50776405003785

// Palette returns n distinct, fully saturated colours. The sequence is
// deterministic: Palette(n)[i] == Palette(m)[i].
func Palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		hue := math.Mod(float64(i)*goldenAngle, 360)
		out[i] = colorful.Hsv(hue, 0.85, 1).Clamped()
	}
	return out
}

// Annotate renders the frame of res with the outline of every region's
// bounding rectangle drawn in its palette colour.
//
// Arguments:
//   - res: The pipeline result to render.
//   - thickness: Outline width in pixels; values below 1 are treated as 1.
//
// Returns:
//   - *image.NRGBA: A new image; res is not modified.
func Annotate(res pipeline.Result, thickness int) *image.NRGBA {
	img := imaging.Clone(res.Frame.Image())
	if thickness < 1 {
		thickness = 1
	}
	for i, c := range Palette(len(res.Regions)) {
		outline(img, res.Regions[i].Bounds, thickness, c)
	}
	return img
}

// outline draws the border of r, thickness pixels wide, inside r.
func outline(img *image.NRGBA, r image.Rectangle, thickness int, c color.Color) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	inner := r.Inset(thickness)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !image.Pt(x, y).In(inner) {
				img.Set(x, y, c)
			}
		}
	}
}
