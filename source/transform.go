package source

import (
	"context"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/frame"
)

// Transform maps a frame to a new frame, keeping its sequence number and
// timestamp.
type Transform func(f *frame.Frame) (*frame.Frame, error)

// Transformed applies transforms, in order, to every frame of a source.
type Transformed struct {
	src        Source
	transforms []Transform
}

// WithTransforms wraps src so every frame passes through transforms.
//
// @example
// resize, err := source.Resize(320, 240)
//
//	if err != nil {
//	    return err
//	}
//
// src = source.WithTransforms(src, resize, source.Grayscale())
func WithTransforms(src Source, transforms ...Transform) *Transformed {
	return &Transformed{src: src, transforms: transforms}
}

// Next reads from the wrapped source and transforms the frame. Source errors,
// io.EOF included, pass through untouched.
func (t *Transformed) Next(ctx context.Context) (*frame.Frame, error) {
	f, err := t.src.Next(ctx)
	if err != nil || f == nil {
		return f, err
	}
	for _, transform := range t.transforms {
		if f, err = transform(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// rebuild converts img back into a frame with f's identity and channel layout.
func rebuild(f *frame.Frame, img image.Image) (*frame.Frame, error) {
	if f.Channels() == 1 {
		return frame.FromGray(f.Seq(), f.Timestamp(), img)
	}
	return frame.FromImage(f.Seq(), f.Timestamp(), img)
}

// Resize scales frames to width × height with bilinear interpolation. A zero
// dimension preserves the aspect ratio.
//
// Arguments:
//   - width: The target width; 0 derives it from height.
//   - height: The target height; 0 derives it from width.
//
// Returns:
//   - Transform: The resize step.
//   - error: A *common.ConfigurationError for a negative size or when both
//     dimensions are zero.
func Resize(width, height int) (Transform, error) {
	if width < 0 || height < 0 || (width == 0 && height == 0) {
		return nil, common.NewConfigurationError("ResizeSize", image.Pt(width, height), "must be positive")
	}
	return func(f *frame.Frame) (*frame.Frame, error) {
		if f.Width() == width && f.Height() == height {
			return f, nil
		}
		out, err := rebuild(f, resize.Resize(uint(width), uint(height), f.Image(), resize.Bilinear))
		return out, errors.Wrap(err, "source: resize")
	}, nil
}

// Blur applies a Gaussian blur of the given radius. Radius 0 is a no-op. A
// negative radius is a *common.ConfigurationError.
func Blur(radius float64) (Transform, error) {
	if radius < 0 {
		return nil, common.NewConfigurationError("BlurRadius", radius, "must not be negative")
	}
	return func(f *frame.Frame) (*frame.Frame, error) {
		if radius == 0 {
			return f, nil
		}
		out, err := rebuild(f, blur.Gaussian(f.Image(), radius))
		return out, errors.Wrap(err, "source: blur")
	}, nil
}

// Grayscale converts frames to a single luminance channel.
func Grayscale() Transform {
	return func(f *frame.Frame) (*frame.Frame, error) {
		if f.Channels() == 1 {
			return f, nil
		}
		out, err := frame.FromGray(f.Seq(), f.Timestamp(), imaging.Grayscale(f.Image()))
		return out, errors.Wrap(err, "source: grayscale")
	}
}
