// Package frame - immutable video frames and binary foreground masks.
package frame

import (
	"image"
	"image/color"
	"time"

	"github.com/pkg/errors"
)

// Frame is a single captured video frame: a width × height grid of 8-bit samples
// with Channels interleaved samples per pixel.
//
// A Frame is immutable once constructed. Constructors copy the caller's data,
// and slices returned by Pixel are views that must not be written to. This makes
// a Frame safe to hand across goroutines without copying.
type Frame struct {
	seq       int64
	timestamp time.Time
	width     int
	height    int
	channels  int
	pix       []uint8
}

// New constructs a Frame by copying pix.
//
// Arguments:
//   - seq: The sequence number assigned by the source.
//   - ts: The capture timestamp.
//   - width, height: Frame dimensions in pixels, both > 0.
//   - channels: Samples per pixel: 1 (gray), 3 (RGB) or 4 (RGBA).
//   - pix: Row-major interleaved samples, len == width*height*channels.
//
// Returns:
//   - *Frame: The new frame.
//   - error: If the dimensions or the buffer length are invalid.
//
// @example
// f, err := frame.New(0, time.Now(), 64, 64, 1, make([]uint8, 64*64))
func New(seq int64, ts time.Time, width, height, channels int, pix []uint8) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("frame: invalid dimensions %dx%d", width, height)
	}
	switch channels {
	case 1, 3, 4:
	default:
		return nil, errors.Errorf("frame: unsupported channel count %d", channels)
	}
	if len(pix) != width*height*channels {
		return nil, errors.Errorf("frame: buffer length %d, want %d", len(pix), width*height*channels)
	}
	buf := make([]uint8, len(pix))
	copy(buf, pix)
	return &Frame{
		seq:       seq,
		timestamp: ts,
		width:     width,
		height:    height,
		channels:  channels,
		pix:       buf,
	}, nil
}

// Uniform builds a frame where every pixel holds the same sample values.
// len(value) is the channel count.
func Uniform(seq int64, ts time.Time, width, height int, value ...uint8) (*Frame, error) {
	channels := len(value)
	pix := make([]uint8, width*height*channels)
	for i := 0; i < len(pix); i += channels {
		copy(pix[i:i+channels], value)
	}
	return New(seq, ts, width, height, channels, pix)
}

// FromImage converts img into a 3-channel RGB frame. Alpha is discarded.
//
// Arguments:
//   - seq: The sequence number assigned by the source.
//   - ts: The capture timestamp.
//   - img: The decoded image; its bounds origin is translated to (0,0).
//
// Returns:
//   - *Frame: The converted frame.
//   - error: If img is nil or empty.
func FromImage(seq int64, ts time.Time, img image.Image) (*Frame, error) {
	if img == nil {
		return nil, errors.New("frame: nil image")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("frame: empty image %v", b)
	}

	pix := make([]uint8, w*h*3)
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[(y)*src.Stride : (y)*src.Stride+w*4]
			for x := 0; x < w; x++ {
				copy(pix[(y*w+x)*3:(y*w+x)*3+3], row[x*4:x*4+3])
			}
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[(y)*src.Stride : (y)*src.Stride+w*4]
			for x := 0; x < w; x++ {
				copy(pix[(y*w+x)*3:(y*w+x)*3+3], row[x*4:x*4+3])
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				i := (y*w + x) * 3
				pix[i] = uint8(r >> 8)
				pix[i+1] = uint8(g >> 8)
				pix[i+2] = uint8(bl >> 8)
			}
		}
	}

	return &Frame{seq: seq, timestamp: ts, width: w, height: h, channels: 3, pix: pix}, nil
}

// FromGray converts img into a single-channel luminance frame.
func FromGray(seq int64, ts time.Time, img image.Image) (*Frame, error) {
	if img == nil {
		return nil, errors.New("frame: nil image")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("frame: empty image %v", b)
	}

	pix := make([]uint8, w*h)
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], g.Pix[y*g.Stride:y*g.Stride+w])
		}
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			}
		}
	}

	return &Frame{seq: seq, timestamp: ts, width: w, height: h, channels: 1, pix: pix}, nil
}

// Seq returns the sequence number assigned by the source.
func (f *Frame) Seq() int64 { return f.seq }

// Timestamp returns the capture time.
func (f *Frame) Timestamp() time.Time { return f.timestamp }

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Channels returns the number of samples per pixel.
func (f *Frame) Channels() int { return f.channels }

// Bounds returns the frame rectangle, always anchored at (0,0).
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.width, f.height) }

// Pixel returns a read-only view of the samples at (x, y).
// The returned slice has len == cap == Channels().
func (f *Frame) Pixel(x, y int) []uint8 {
	i := (y*f.width + x) * f.channels
	return f.pix[i : i+f.channels : i+f.channels]
}

// WithSeq returns a frame sharing f's immutable samples under a new sequence
// number and timestamp.
func (f *Frame) WithSeq(seq int64, ts time.Time) *Frame {
	c := *f
	c.seq = seq
	c.timestamp = ts
	return &c
}

// Image renders the frame into a freshly allocated image: *image.Gray for one
// channel, *image.RGBA otherwise. Mutating the result does not affect f.
func (f *Frame) Image() image.Image {
	if f.channels == 1 {
		img := image.NewGray(f.Bounds())
		copy(img.Pix, f.pix)
		return img
	}

	img := image.NewRGBA(f.Bounds())
	for i, j := 0, 0; i < len(f.pix); i, j = i+f.channels, j+4 {
		img.Pix[j] = f.pix[i]
		img.Pix[j+1] = f.pix[i+1]
		img.Pix[j+2] = f.pix[i+2]
		if f.channels == 4 {
			img.Pix[j+3] = f.pix[i+3]
		} else {
			img.Pix[j+3] = 0xff
		}
	}
	return img
}
