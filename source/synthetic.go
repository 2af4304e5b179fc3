package source

import (
	"context"
	"image"
	"io"
	"math/rand"
	"time"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/frame"
)

// SyntheticConfig describes a deterministic test scene: a uniform background
// that, after StaticFrames frames, gains a solid moving square.
type SyntheticConfig struct {
	// Width and Height are the frame dimensions.
	Width, Height int
	// Background is the gray level of the static scene.
	Background uint8
	// Foreground is the gray level of the object.
	Foreground uint8
	// StaticFrames is how many frames contain only the background.
	StaticFrames int
	// Object is the object's rectangle on its first appearance.
	Object image.Rectangle
	// Step moves the object by this offset every frame after it appears.
	Step image.Point
	// Noise adds uniform noise in [-Noise, Noise] to every sample.
	Noise int
	// Seed seeds the noise generator.
	Seed int64
	// Frames is the total number of frames; 0 means unbounded.
	Frames int
	// Start is the timestamp of the first frame.
	Start time.Time
	// Interval is the time between frames.
	Interval time.Duration
}

// DefaultSyntheticConfig returns a 64×64 mid-gray scene with a white 10×10
// square appearing at (20,20) on frame 51.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Width:        64,
		Height:       64,
		Background:   128,
		Foreground:   255,
		StaticFrames: 50,
		Object:       image.Rect(20, 20, 30, 30),
		Seed:         42,
		Interval:     33 * time.Millisecond,
	}
}

// Synthetic generates single-channel frames of a SyntheticConfig scene.
type Synthetic struct {
	cfg SyntheticConfig
	rng *rand.Rand
	seq int64
}

// NewSynthetic validates cfg and returns the generator.
//
// Arguments:
//   - cfg: The scene description.
//
// Returns:
//   - *Synthetic: The generator.
//   - error: A *common.ConfigurationError for bad dimensions or counts.
//
// @example
// src, err := source.NewSynthetic(source.DefaultSyntheticConfig())
func NewSynthetic(cfg SyntheticConfig) (*Synthetic, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, common.NewConfigurationError("SyntheticSize", image.Pt(cfg.Width, cfg.Height), "must be positive")
	}
	if cfg.StaticFrames < 0 {
		return nil, common.NewConfigurationError("StaticFrames", cfg.StaticFrames, "must not be negative")
	}
	if cfg.Frames < 0 {
		return nil, common.NewConfigurationError("Frames", cfg.Frames, "must not be negative")
	}
	if cfg.Noise < 0 || cfg.Noise > 255 {
		return nil, common.NewConfigurationError("Noise", cfg.Noise, "must be within [0,255]")
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	return &Synthetic{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// ObjectAt returns the object's rectangle in frame seq, clipped to the frame.
// It is empty while the scene is static.
func (s *Synthetic) ObjectAt(seq int64) image.Rectangle {
	if seq < int64(s.cfg.StaticFrames) {
		return image.Rectangle{}
	}
	n := int(seq) - s.cfg.StaticFrames
	r := s.cfg.Object.Add(s.cfg.Step.Mul(n))
	return r.Intersect(image.Rect(0, 0, s.cfg.Width, s.cfg.Height))
}

// Next renders the next frame, or returns io.EOF after cfg.Frames frames.
func (s *Synthetic) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cfg.Frames > 0 && s.seq >= int64(s.cfg.Frames) {
		return nil, io.EOF
	}

	w, h := s.cfg.Width, s.cfg.Height
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = s.noisy(s.cfg.Background)
	}
	obj := s.ObjectAt(s.seq)
	for y := obj.Min.Y; y < obj.Max.Y; y++ {
		for x := obj.Min.X; x < obj.Max.X; x++ {
			pix[y*w+x] = s.noisy(s.cfg.Foreground)
		}
	}

	ts := s.cfg.Start.Add(time.Duration(s.seq) * s.cfg.Interval)
	f, err := frame.New(s.seq, ts, w, h, 1, pix)
	if err != nil {
		return nil, err
	}
	s.seq++
	return f, nil
}

func (s *Synthetic) noisy(v uint8) uint8 {
	if s.cfg.Noise == 0 {
		return v
	}
	n := int(v) + s.rng.Intn(2*s.cfg.Noise+1) - s.cfg.Noise
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}
