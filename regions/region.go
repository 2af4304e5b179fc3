// Package regions - connected-component extraction of moving-object regions.
//
// Extract walks a foreground mask in raster order, labels every 8-connected
// component with an explicit flood fill, traces the component's external
// contour and returns its axis-aligned bounding rectangle.
package regions

import (
	"fmt"
	"image"
)

// Region is one connected foreground blob.
type Region struct {
	// Bounds is the axis-aligned bounding rectangle; Max is exclusive.
	Bounds image.Rectangle `json:"bounds"`
	// Contour is the external boundary, clockwise from the top-left pixel.
	Contour []image.Point `json:"contour,omitempty"`
	// Area is the number of pixels in the component, holes excluded.
	Area int `json:"area"`
}

// XYWH returns the bounding rectangle as origin and size.
func (r Region) XYWH() (x, y, w, h int) {
	return r.Bounds.Min.X, r.Bounds.Min.Y, r.Bounds.Dx(), r.Bounds.Dy()
}

// String formats the region for logs.
func (r Region) String() string {
	x, y, w, h := r.XYWH()
	return fmt.Sprintf("region(x=%d y=%d w=%d h=%d area=%d)", x, y, w, h, r.Area)
}

// BoundingRect returns the smallest rectangle containing every contour point.
// It returns the zero rectangle for an empty contour.
func BoundingRect(contour []image.Point) image.Rectangle {
	if len(contour) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: contour[0], Max: contour[0].Add(image.Pt(1, 1))}
	for _, p := range contour[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X+1)
		r.Max.Y = max(r.Max.Y, p.Y+1)
	}
	return r
}

// Overlaps reports whether the bounding rectangles of a and b intersect.
func Overlaps(a, b Region) bool {
	return a.Bounds.Overlaps(b.Bounds)
}

// IoU returns the intersection over union of the bounding rectangles of a and b.
//
// Returns:
//   - float32: 1.0 for identical rectangles, 0.0 for disjoint ones.
//
// @example
// a := Region{Bounds: image.Rect(0, 0, 10, 10)}
// b := Region{Bounds: image.Rect(5, 5, 15, 15)}
// fmt.Println(regions.IoU(a, b)) // Output: 0.14285715
func IoU(a, b Region) float32 {
	inter := a.Bounds.Intersect(b.Bounds)
	if inter.Empty() {
		return 0
	}
	interArea := inter.Dx() * inter.Dy()
	union := a.Bounds.Dx()*a.Bounds.Dy() + b.Bounds.Dx()*b.Bounds.Dy() - interArea
	return float32(interArea) / float32(union)
}
