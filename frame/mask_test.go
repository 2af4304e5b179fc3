package frame

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskFromRows(t *testing.T) {
	m := MaskFromRows(
		"#..",
		".##",
	)
	assert.Equal(t, 3, m.Width())
	assert.Equal(t, 2, m.Height())
	assert.Equal(t, 3, m.Count())
	assert.True(t, m.IsForeground(0, 0))
	assert.False(t, m.IsForeground(1, 0))
	assert.False(t, m.IsForeground(-1, 0))
	assert.False(t, m.IsForeground(3, 1))
}

func TestMaskFillAndClone(t *testing.T) {
	m := NewMask(10, 10)
	m.Fill(image.Rect(8, 8, 20, 20))
	assert.Equal(t, 4, m.Count())

	c := m.Clone()
	c.Set(0, 0, true)
	assert.Equal(t, 5, c.Count())
	assert.Equal(t, 4, m.Count())
}

func TestMaskSameSize(t *testing.T) {
	f, err := Uniform(0, time.Time{}, 4, 3, 0)
	require.NoError(t, err)

	assert.True(t, NewMask(4, 3).SameSize(f))
	assert.False(t, NewMask(3, 4).SameSize(f))
	assert.False(t, NewMask(4, 3).SameSize(nil))
}

func TestMaskImage(t *testing.T) {
	m := MaskFromRows("#.")
	img := m.Image()
	assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(1, 0).Y)
}
