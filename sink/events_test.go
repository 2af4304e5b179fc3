package sink

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-motion/frame"
	"github.com/nvr-ai/go-motion/pipeline"
	"github.com/nvr-ai/go-motion/regions"
)

var epoch = time.Unix(1_700_000_000, 0)

// at builds a 100 ms cadence result, with motion of the given area when > 0.
func at(t *testing.T, seq int64, area int) pipeline.Result {
	t.Helper()
	f, err := frame.Uniform(seq, epoch.Add(time.Duration(seq)*100*time.Millisecond), 4, 4, 0)
	require.NoError(t, err)
	res := pipeline.Result{Frame: f}
	if area > 0 {
		res.Regions = []regions.Region{{Bounds: image.Rect(0, 0, 1, 1), Area: area}}
	}
	return res
}

func TestEventsDebounce(t *testing.T) {
	var got []MotionEvent
	e := NewEvents(300*time.Millisecond, 150*time.Millisecond, func(ev MotionEvent) error {
		got = append(got, ev)
		return nil
	})

	// A two-frame blip is shorter than the minimum duration.
	for seq, area := range []int{5, 5, 0, 0, 0} {
		require.NoError(t, e.Put(at(t, int64(seq), area)))
	}
	assert.Empty(t, got)
	assert.False(t, e.Active())

	// Sustained motion from seq 5 with a one-frame dropout inside the gap.
	for _, step := range []struct {
		seq  int64
		area int
	}{{5, 10}, {6, 20}, {7, 0}, {8, 40}, {9, 10}, {10, 0}, {11, 0}} {
		require.NoError(t, e.Put(at(t, step.seq, step.area)))
	}

	require.Len(t, got, 2)
	start, end := got[0], got[1]
	assert.Equal(t, MotionStarted, start.Kind)
	assert.Equal(t, 1, start.ID)
	assert.Equal(t, int64(8), start.Seq)
	assert.Equal(t, 300*time.Millisecond, start.Duration())

	assert.Equal(t, MotionEnded, end.Kind)
	assert.Equal(t, 1, end.ID)
	assert.Equal(t, int64(11), end.Seq)
	assert.Equal(t, 400*time.Millisecond, end.Duration())
	assert.Equal(t, 4, end.Frames)
	assert.Equal(t, 40, end.PeakArea)
	assert.Equal(t, 1, e.Count())
}

func TestEventsFlush(t *testing.T) {
	var got []MotionEvent
	e := NewEvents(0, time.Second, func(ev MotionEvent) error {
		got = append(got, ev)
		return nil
	})

	require.NoError(t, e.Put(at(t, 0, 3)))
	require.Len(t, got, 1, "zero minimum reports immediately")
	assert.True(t, e.Active())

	require.NoError(t, e.Flush())
	require.Len(t, got, 2)
	assert.Equal(t, MotionEnded, got[1].Kind)
	assert.Equal(t, int64(-1), got[1].Seq)
	assert.NoError(t, e.Flush())
	assert.Len(t, got, 2)
}

func TestEventsEmitError(t *testing.T) {
	e := NewEvents(0, 0, func(MotionEvent) error { return assert.AnError })
	assert.Same(t, assert.AnError, e.Put(at(t, 0, 1)))
}
