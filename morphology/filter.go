package morphology

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-motion/frame"
)

// Config configures the noise filter.
type Config struct {
	// Shape of the structuring element.
	Shape Shape
	// Size is the odd side length of the structuring element.
	Size int
}

// DefaultConfig returns a 3x3 ellipse, the kernel used for noise removal in
// the reference motion pipeline.
func DefaultConfig() Config {
	return Config{Shape: Ellipse, Size: 3}
}

// Filter removes speckle noise from a foreground mask by morphological opening.
type Filter struct {
	element StructuringElement
}

// NewFilter creates a noise filter.
//
// Arguments:
//   - cfg: Structuring element shape and size.
//
// Returns:
//   - *Filter: The filter.
//   - error: A *common.ConfigurationError if the element is invalid.
func NewFilter(cfg Config) (*Filter, error) {
	se, err := Element(cfg.Shape, cfg.Size)
	if err != nil {
		return nil, errors.Wrap(err, "morphology")
	}
	return &Filter{element: se}, nil
}

// Element returns the structuring element used by the filter.
func (f *Filter) Element() StructuringElement {
	return f.element
}

// Apply returns the opening of m. The input is not modified.
//
// The output foreground area never exceeds the input's, single-pixel noise is
// removed and blobs at least as large as the element survive with only their
// corners rounded.
func (f *Filter) Apply(m *frame.Mask) *frame.Mask {
	return Open(m, f.element)
}

// Open erodes then dilates m with se.
func Open(m *frame.Mask, se StructuringElement) *frame.Mask {
	return Dilate(Erode(m, se), se)
}

// Close dilates then erodes m with se, filling holes narrower than the element.
func Close(m *frame.Mask, se StructuringElement) *frame.Mask {
	return Erode(Dilate(m, se), se)
}

// Erode keeps a foreground pixel only if every element offset that falls inside
// the mask is foreground as well. Offsets outside the mask do not clear a
// pixel, so blobs touching the border are not eaten from the border side.
func Erode(m *frame.Mask, se StructuringElement) *frame.Mask {
	out := frame.NewMask(m.Width(), m.Height())
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if !m.IsForeground(x, y) {
				continue
			}
			keep := true
			for _, o := range se.offsets {
				nx, ny := x+o.X, y+o.Y
				if m.In(nx, ny) && !m.IsForeground(nx, ny) {
					keep = false
					break
				}
			}
			if keep {
				out.Set(x, y, true)
			}
		}
	}
	return out
}

// Dilate marks every pixel covered by the element placed on a foreground pixel.
func Dilate(m *frame.Mask, se StructuringElement) *frame.Mask {
	out := frame.NewMask(m.Width(), m.Height())
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if !m.IsForeground(x, y) {
				continue
			}
			for _, o := range se.offsets {
				out.Set(x+o.X, y+o.Y, true)
			}
		}
	}
	return out
}
