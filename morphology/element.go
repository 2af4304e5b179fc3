// Package morphology - binary morphological operations over foreground masks.
//
// The NoiseFilter performs an opening (erosion followed by dilation) so that
// isolated speckles vanish while coherent blobs keep roughly their extent.
package morphology

import (
	"image"
	"math"
	"strings"

	"github.com/nvr-ai/go-motion/common"
)

// Shape selects the structuring element geometry.
type Shape int

const (
	// Rect is a filled square.
	Rect Shape = iota
	// Ellipse is the raster ellipse inscribed in the square (a cross at 3x3).
	Ellipse
	// Cross is a plus sign through the anchor.
	Cross
)

// String returns the lower-case shape name.
func (s Shape) String() string {
	switch s {
	case Rect:
		return "rect"
	case Ellipse:
		return "ellipse"
	case Cross:
		return "cross"
	default:
		return "unknown"
	}
}

// ParseShape maps "rect", "ellipse" or "cross" (case-insensitive) to a Shape.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rect", "rectangle":
		return Rect, nil
	case "ellipse":
		return Ellipse, nil
	case "cross":
		return Cross, nil
	}
	return 0, common.NewConfigurationError("StructuringElementShape", name, "must be rect, ellipse or cross")
}

// StructuringElement is a set of offsets relative to a centred anchor.
type StructuringElement struct {
	shape   Shape
	size    int
	offsets []image.Point
}

// Element builds a size × size structuring element of the given shape.
//
// The ellipse raster follows the common OpenCV construction so that masks
// filtered here match what an OpenCV MORPH_ELLIPSE kernel would produce.
//
// Arguments:
//   - shape: Rect, Ellipse or Cross.
//   - size: Odd side length >= 1. A size of 1 is the identity element.
//
// Returns:
//   - StructuringElement: The element with a centred anchor.
//   - error: A *common.ConfigurationError for even or non-positive sizes.
//
// @example
// se, err := morphology.Element(morphology.Ellipse, 3)
// fmt.Println(se.Len()) // Output: 5
func Element(shape Shape, size int) (StructuringElement, error) {
	if size < 1 || size%2 == 0 {
		return StructuringElement{}, common.NewConfigurationError("StructuringElementSize", size, "must be odd and >= 1")
	}

	r := size / 2
	var offsets []image.Point
	switch shape {
	case Rect:
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				offsets = append(offsets, image.Pt(dx, dy))
			}
		}
	case Cross:
		for d := -r; d <= r; d++ {
			offsets = append(offsets, image.Pt(d, 0))
			if d != 0 {
				offsets = append(offsets, image.Pt(0, d))
			}
		}
	case Ellipse:
		var invR2 float64
		if r > 0 {
			invR2 = 1 / float64(r*r)
		}
		for dy := -r; dy <= r; dy++ {
			half := int(math.Round(float64(r) * math.Sqrt(float64(r*r-dy*dy)*invR2)))
			for dx := -half; dx <= half; dx++ {
				offsets = append(offsets, image.Pt(dx, dy))
			}
		}
	default:
		return StructuringElement{}, common.NewConfigurationError("StructuringElementShape", shape, "unknown shape")
	}

	return StructuringElement{shape: shape, size: size, offsets: offsets}, nil
}

// Shape returns the element shape.
func (se StructuringElement) Shape() Shape { return se.shape }

// Size returns the side length.
func (se StructuringElement) Size() int { return se.size }

// Len returns the number of offsets in the element.
func (se StructuringElement) Len() int { return len(se.offsets) }

// Contains reports whether the offset (dx, dy) from the anchor is part of the element.
func (se StructuringElement) Contains(dx, dy int) bool {
	for _, o := range se.offsets {
		if o.X == dx && o.Y == dy {
			return true
		}
	}
	return false
}
