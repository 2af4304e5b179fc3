package regions

import (
	"image"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/frame"
)

// Approximation selects how contour points are stored.
type Approximation int

const (
	// ApproxSimple keeps only the points where the boundary changes direction.
	ApproxSimple Approximation = iota
	// ApproxNone keeps every boundary pixel.
	ApproxNone
)

// String returns "simple" or "none".
func (a Approximation) String() string {
	switch a {
	case ApproxSimple:
		return "simple"
	case ApproxNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseApproximation maps "simple" or "none" (case-insensitive) to an
// Approximation.
func ParseApproximation(name string) (Approximation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "simple":
		return ApproxSimple, nil
	case "none":
		return ApproxNone, nil
	}
	return 0, common.NewConfigurationError("Approximation", name, "must be simple or none")
}

// Config configures region extraction.
type Config struct {
	// MinArea suppresses components with fewer pixels. Zero keeps everything.
	MinArea int
	// Approximation controls contour compression.
	Approximation Approximation
}

// DefaultConfig keeps every component and compresses contours.
func DefaultConfig() Config {
	return Config{MinArea: 0, Approximation: ApproxSimple}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinArea < 0 {
		return common.NewConfigurationError("MinimumRegionArea", c.MinArea, "must be >= 0")
	}
	if c.Approximation != ApproxSimple && c.Approximation != ApproxNone {
		return common.NewConfigurationError("Approximation", c.Approximation, "must be ApproxSimple or ApproxNone")
	}
	return nil
}

// Extractor finds the external contours of 8-connected foreground components.
type Extractor struct {
	cfg Config
}

// NewExtractor creates a region extractor.
//
// Arguments:
//   - cfg: Minimum area and contour approximation.
//
// Returns:
//   - *Extractor: The extractor.
//   - error: A *common.ConfigurationError if cfg is invalid.
func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "regions")
	}
	return &Extractor{cfg: cfg}, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Extract returns one Region per 8-connected foreground component of m whose
// area is at least MinArea. Interior holes are ignored.
//
// Regions are returned in discovery order (raster order of each component's
// top-left pixel); callers must not rely on it.
func (e *Extractor) Extract(m *frame.Mask) []Region {
	w, h := m.Width(), m.Height()
	visited := make([]bool, w*h)
	var out []Region
	var stack []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || !m.IsForeground(x, y) {
				continue
			}

			area := 0
			visited[y*w+x] = true
			stack = append(stack[:0], image.Pt(x, y))
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				area++
				for _, d := range neighbours {
					n := p.Add(d)
					if m.IsForeground(n.X, n.Y) && !visited[n.Y*w+n.X] {
						visited[n.Y*w+n.X] = true
						stack = append(stack, n)
					}
				}
			}

			if area < e.cfg.MinArea {
				continue
			}

			contour := traceContour(m, image.Pt(x, y), area)
			bounds := BoundingRect(contour)
			if e.cfg.Approximation == ApproxSimple {
				contour = simplify(contour)
			}
			out = append(out, Region{Bounds: bounds, Contour: contour, Area: area})
		}
	}
	return out
}

// neighbours lists the 8 directions clockwise starting east (y grows down).
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const west = 4

// traceContour follows the outer boundary of the component containing start
// using Moore-neighbour tracing with Jacob's stopping criterion. start must be
// the component's first pixel in raster order, so its west, north-west, north
// and north-east neighbours are background.
func traceContour(m *frame.Mask, start image.Point, area int) []image.Point {
	contour := []image.Point{start}
	cur := start
	back := west
	first := -1

	// A boundary pixel is entered at most four times.
	for steps := 0; steps < 4*area+4; steps++ {
		dir := -1
		for i := 1; i <= 8; i++ {
			c := (back + i) % 8
			n := cur.Add(neighbours[c])
			if m.IsForeground(n.X, n.Y) {
				dir = c
				break
			}
		}
		if dir < 0 {
			// Isolated pixel.
			return contour
		}
		if first < 0 {
			first = dir
		} else if cur == start && dir == first {
			break
		}

		cur = cur.Add(neighbours[dir])
		contour = append(contour, cur)
		// The last background pixel examined, seen from the new position.
		if dir%2 == 0 {
			back = (dir + 6) % 8
		} else {
			back = (dir + 5) % 8
		}
	}

	if n := len(contour); n > 1 && contour[n-1] == start {
		contour = contour[:n-1]
	}
	return contour
}

// simplify drops contour points lying in the middle of a straight horizontal,
// vertical or diagonal run.
func simplify(contour []image.Point) []image.Point {
	n := len(contour)
	if n < 3 {
		return contour
	}
	out := make([]image.Point, 0, n)
	for i, p := range contour {
		prev := contour[(i+n-1)%n]
		next := contour[(i+1)%n]
		if p.Sub(prev) != next.Sub(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return contour[:1]
	}
	return out
}
