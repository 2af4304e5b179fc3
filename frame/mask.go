package frame

import "image"

// Mask is a binary foreground/background grid.
//
// Masks produced by the pipeline always have the dimensions of the frame they
// were derived from.
type Mask struct {
	width  int
	height int
	bits   []bool
}

// NewMask returns an all-background mask of the given size.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{width: width, height: height, bits: make([]bool, width*height)}
}

// MaskFromRows builds a mask from rows of '#' (foreground) and any other rune
// (background). All rows must have the same length.
//
// @example
// m := frame.MaskFromRows("#..", ".##") // 3x2 mask, 3 foreground pixels
func MaskFromRows(rows ...string) *Mask {
	if len(rows) == 0 {
		return NewMask(0, 0)
	}
	m := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, c := range row {
			if x < m.width && c == '#' {
				m.bits[y*m.width+x] = true
			}
		}
	}
	return m
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// Bounds returns the mask rectangle anchored at (0,0).
func (m *Mask) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

// In reports whether (x, y) lies inside the mask.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// IsForeground reports whether (x, y) is foreground. Points outside the mask
// are background.
func (m *Mask) IsForeground(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.bits[y*m.width+x]
}

// Set marks (x, y) as foreground (true) or background (false). Points outside
// the mask are ignored.
func (m *Mask) Set(x, y int, foreground bool) {
	if !m.In(x, y) {
		return
	}
	m.bits[y*m.width+x] = foreground
}

// Fill marks every point of r (clipped to the mask) as foreground.
func (m *Mask) Fill(r image.Rectangle) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.bits[y*m.width+x] = true
		}
	}
}

// Count returns the foreground area in pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// SameSize reports whether the mask matches the frame dimensions.
func (m *Mask) SameSize(f *Frame) bool {
	return f != nil && m.width == f.width && m.height == f.height
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	c := &Mask{width: m.width, height: m.height, bits: make([]bool, len(m.bits))}
	copy(c.bits, m.bits)
	return c
}

// Image renders the mask as an 8-bit image: 255 foreground, 0 background.
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(m.Bounds())
	for i, b := range m.bits {
		if b {
			img.Pix[i] = 0xff
		}
	}
	return img
}
