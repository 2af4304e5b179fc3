// Package background - adaptive per-pixel mixture-of-Gaussians background model.
//
// The Model learns a multi-modal distribution of the samples observed at every
// pixel and classifies each new sample as background (explained by one of the
// heavy, long-lived components) or foreground (anything else).
//
// Pipeline position:
//
// ┌──────────────┐     ┌──────────────────┐     ┌────────────────┐
// │ Input Frame  │ ──▶ │ Background Model │ ──▶ │ Foreground Mask│
// └──────────────┘     └──────────────────┘     └────────────────┘
//
// Model per pixel: K components, each with a mean per channel, one isotropic
// variance and a weight. Components are kept sorted by weight descending and
// the weights of a pixel sum to 1 after every update.
//
// Usage:
//
//	model, err := background.New(background.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	for {
//	    mask, err := model.Apply(nextFrame())
//	    ...
//	}
//
// A Model is not safe for concurrent use: at most one Apply may be in flight.
package background

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-motion/frame"
)

var (
	// ErrNilFrame is returned by Apply when called with a nil frame.
	ErrNilFrame = errors.New("background: nil frame")
	// ErrFrameMismatch is returned by Apply when the frame geometry differs
	// from the frames the model was trained on.
	ErrFrameMismatch = errors.New("background: frame does not match model geometry")
)

// Component is a snapshot of one Gaussian of a pixel's mixture.
type Component struct {
	// Weight is the mixing weight in [0,1].
	Weight float32
	// Mean has one entry per colour channel; alpha is not modelled.
	Mean []float32
	// Variance is the per-channel (isotropic) variance.
	Variance float32
}

// StdDev returns the component's standard deviation.
func (c Component) StdDev() float32 {
	return math32.Sqrt(c.Variance)
}

// Model is a per-pixel adaptive background estimator.
type Model struct {
	cfg Config

	// Geometry, fixed by the first frame after New or Reset.
	width    int
	height   int
	channels int
	// samples is the number of modelled channels; alpha is not modelled.
	samples int

	// Flat state, indexed by pixel*k (+ channel for means).
	weights   []float32
	means     []float32
	variances []float32
	active    []uint8

	frames int
	k      int
	t2     float32
	sample []float32
}

// New creates a background model.
//
// Arguments:
//   - cfg: Model parameters; see DefaultConfig.
//
// Returns:
//   - *Model: The model, with no components until the first frame is applied.
//   - error: A *common.ConfigurationError if cfg is invalid.
//
// @example
// model, err := background.New(background.DefaultConfig())
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "background")
	}
	return &Model{
		cfg: cfg,
		k:   cfg.ComponentsPerPixel,
		t2:  cfg.MatchThreshold * cfg.MatchThreshold,
	}, nil
}

// Config returns the model parameters.
func (m *Model) Config() Config {
	return m.cfg
}

// Frames returns the number of frames applied since New or the last Reset.
func (m *Model) Frames() int {
	return m.frames
}

// Bootstrapping reports whether the model is still inside its bootstrap window,
// i.e. fewer than Config.BootstrapFrames frames have been applied.
func (m *Model) Bootstrapping() bool {
	return m.frames < m.cfg.BootstrapFrames
}

// Reset discards all learned state. The next frame fixes a new geometry.
func (m *Model) Reset() {
	m.width, m.height, m.channels, m.samples = 0, 0, 0, 0
	m.weights = nil
	m.means = nil
	m.variances = nil
	m.active = nil
	m.sample = nil
	m.frames = 0
}

// Apply classifies every pixel of f and updates the model with it.
//
// While no component exists for a pixel (the very first frame) the pixel is
// foreground. This is the bootstrap policy, see Bootstrapping.
//
// Arguments:
//   - f: The frame to classify. Its geometry must match the first frame.
//
// Returns:
//   - *frame.Mask: Foreground mask with the dimensions of f.
//   - error: ErrNilFrame or ErrFrameMismatch. On error the model is unchanged.
func (m *Model) Apply(f *frame.Frame) (*frame.Mask, error) {
	if f == nil {
		return nil, ErrNilFrame
	}
	if m.active != nil {
		if f.Width() != m.width || f.Height() != m.height || f.Channels() != m.channels {
			return nil, errors.Wrapf(ErrFrameMismatch, "got %dx%dx%d, model is %dx%dx%d",
				f.Width(), f.Height(), f.Channels(), m.width, m.height, m.channels)
		}
	} else {
		m.allocate(f.Width(), f.Height(), f.Channels())
	}

	mask := frame.NewMask(m.width, m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			px := f.Pixel(x, y)
			for c := range m.sample {
				m.sample[c] = float32(px[c])
			}
			if m.update(y*m.width+x, m.sample) {
				mask.Set(x, y, true)
			}
		}
	}
	m.frames++
	return mask, nil
}

// Components returns a copy of the active components at (x, y), heaviest first.
// It returns nil before the first frame or for points outside the model.
func (m *Model) Components(x, y int) []Component {
	if m.active == nil || x < 0 || y < 0 || x >= m.width || y >= m.height {
		return nil
	}
	p := y*m.width + x
	n := int(m.active[p])
	out := make([]Component, n)
	for i := 0; i < n; i++ {
		j := p*m.k + i
		mean := make([]float32, m.samples)
		copy(mean, m.means[j*m.samples:(j+1)*m.samples])
		out[i] = Component{Weight: m.weights[j], Mean: mean, Variance: m.variances[j]}
	}
	return out
}

func (m *Model) allocate(width, height, channels int) {
	n := width * height
	m.width, m.height, m.channels = width, height, channels
	m.samples = min(channels, 3)
	m.weights = make([]float32, n*m.k)
	m.means = make([]float32, n*m.k*m.samples)
	m.variances = make([]float32, n*m.k)
	m.active = make([]uint8, n)
	m.sample = make([]float32, m.samples)
}

// update folds sample into the mixture of pixel p and reports whether the
// sample is foreground.
func (m *Model) update(p int, sample []float32) bool {
	base := p * m.k
	n := int(m.active[p])
	ch := m.samples
	alpha := m.cfg.LearningRate

	// Find the first (heaviest) matching component and the size of the
	// background prefix, both against the weights before this update.
	matched, bgCount := -1, n
	var cum, matchedDist2 float32
	for i := 0; i < n; i++ {
		j := base + i
		if matched < 0 {
			d2 := dist2(m.means[j*ch:(j+1)*ch], sample)
			if d2 < m.t2*m.variances[j] {
				matched = i
				matchedDist2 = d2
			}
		}
		if bgCount == n {
			cum += m.weights[j]
			if cum >= m.cfg.BackgroundWeightFraction {
				bgCount = i + 1
			}
		}
	}
	foreground := matched < 0 || matched >= bgCount

	for i := 0; i < n; i++ {
		m.weights[base+i] *= 1 - alpha
	}

	if matched >= 0 {
		j := base + matched
		m.weights[j] += alpha
		rho := alpha / m.weights[j]
		mean := m.means[j*ch : (j+1)*ch]
		for c := range mean {
			mean[c] += rho * (sample[c] - mean[c])
		}
		v := m.variances[j] + rho*(matchedDist2/float32(ch)-m.variances[j])
		m.variances[j] = math32.Min(math32.Max(v, m.cfg.MinVariance), m.cfg.MaxVariance)
	} else {
		// Replace the least probable component, or use a free slot.
		slot := n - 1
		if n < m.k {
			slot = n
			n++
			m.active[p] = uint8(n)
		}
		j := base + slot
		m.weights[j] = alpha
		copy(m.means[j*ch:(j+1)*ch], sample)
		m.variances[j] = m.cfg.InitialVariance
	}

	var sum float32
	for i := 0; i < n; i++ {
		sum += m.weights[base+i]
	}
	for i := 0; i < n; i++ {
		m.weights[base+i] /= sum
	}

	m.sortComponents(base, n)
	return foreground
}

// sortComponents keeps the components of one pixel ordered by weight
// descending. Only one component moves per update, so insertion sort is
// effectively linear.
func (m *Model) sortComponents(base, n int) {
	ch := m.samples
	for i := 1; i < n; i++ {
		for j := base + i; j > base && m.weights[j] > m.weights[j-1]; j-- {
			m.weights[j], m.weights[j-1] = m.weights[j-1], m.weights[j]
			m.variances[j], m.variances[j-1] = m.variances[j-1], m.variances[j]
			a := m.means[j*ch : (j+1)*ch]
			b := m.means[(j-1)*ch : j*ch]
			for c := range a {
				a[c], b[c] = b[c], a[c]
			}
		}
	}
}

func dist2(mean, sample []float32) float32 {
	var d float32
	for c := range mean {
		diff := sample[c] - mean[c]
		d += diff * diff
	}
	return d
}
