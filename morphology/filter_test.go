package morphology

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/frame"
)

func TestElementShapes(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		size  int
		want  int
	}{
		{"identity", Rect, 1, 1},
		{"rect 3", Rect, 3, 9},
		{"ellipse 3 is a cross", Ellipse, 3, 5},
		{"ellipse 5", Ellipse, 5, 17},
		{"cross 5", Cross, 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se, err := Element(tt.shape, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, se.Len())
			assert.True(t, se.Contains(0, 0))
			assert.Equal(t, tt.size, se.Size())
			assert.Equal(t, tt.shape, se.Shape())
		})
	}

	se, err := Element(Ellipse, 3)
	require.NoError(t, err)
	assert.False(t, se.Contains(1, 1))
	assert.True(t, se.Contains(1, 0))
}

func TestElementRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, -3, 2, 4} {
		_, err := Element(Rect, size)
		assert.True(t, common.IsConfigurationError(err), "size %d", size)
	}
	_, err := NewFilter(Config{Shape: Shape(42), Size: 3})
	assert.True(t, common.IsConfigurationError(err))
}

func TestParseShape(t *testing.T) {
	for name, want := range map[string]Shape{"rect": Rect, " Ellipse ": Ellipse, "CROSS": Cross} {
		got, err := ParseShape(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NotEqual(t, "unknown", got.String())
	}
	_, err := ParseShape("diamond")
	assert.True(t, common.IsConfigurationError(err))
}

func TestOpenRemovesIsolatedPixels(t *testing.T) {
	f, err := NewFilter(DefaultConfig())
	require.NoError(t, err)

	m := frame.MaskFromRows(
		"..........",
		".#......#.",
		"..........",
		"....#.....",
		"..........",
	)
	out := f.Apply(m)
	assert.Zero(t, out.Count())
	assert.Equal(t, 3, m.Count(), "input must not be modified")
}

func TestOpenPreservesSquare(t *testing.T) {
	f, err := NewFilter(DefaultConfig())
	require.NoError(t, err)

	m := frame.NewMask(64, 64)
	m.Fill(image.Rect(20, 20, 30, 30))
	m.Set(5, 5, true)

	out := f.Apply(m)
	assert.False(t, out.IsForeground(5, 5))
	// A cross element only trims the four corners.
	assert.Equal(t, 100-4, out.Count())
	assert.True(t, out.IsForeground(20, 25))
	assert.True(t, out.IsForeground(29, 25))
	assert.True(t, out.IsForeground(25, 20))
	assert.True(t, out.IsForeground(25, 29))
	assert.False(t, out.IsForeground(20, 20))
}

func TestOpenKeepsBlobOnBorder(t *testing.T) {
	se, err := Element(Rect, 3)
	require.NoError(t, err)

	m := frame.NewMask(8, 8)
	m.Fill(image.Rect(0, 0, 4, 4))
	out := Open(m, se)
	assert.Equal(t, 16, out.Count())
}

func TestOpenNeverGrowsArea(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, shape := range []Shape{Rect, Ellipse, Cross} {
		for _, size := range []int{1, 3, 5} {
			se, err := Element(shape, size)
			require.NoError(t, err)
			for trial := 0; trial < 10; trial++ {
				m := frame.NewMask(24, 16)
				for y := 0; y < 16; y++ {
					for x := 0; x < 24; x++ {
						m.Set(x, y, rng.Float64() < 0.45)
					}
				}
				out := Open(m, se)
				require.LessOrEqual(t, out.Count(), m.Count())
				require.Equal(t, m.Width(), out.Width())
				require.Equal(t, m.Height(), out.Height())
				for y := 0; y < 16; y++ {
					for x := 0; x < 24; x++ {
						if out.IsForeground(x, y) {
							require.True(t, m.IsForeground(x, y), "%s/%d: opening added (%d,%d)", shape, size, x, y)
						}
					}
				}
			}
		}
	}
}

func TestCloseFillsNarrowHole(t *testing.T) {
	se, err := Element(Rect, 3)
	require.NoError(t, err)

	m := frame.NewMask(9, 9)
	m.Fill(image.Rect(2, 2, 7, 7))
	m.Set(4, 4, false)
	out := Close(m, se)
	assert.True(t, out.IsForeground(4, 4))
}
