package pipeline

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimingWindow(t *testing.T) {
	s := newStats(3)
	for _, ms := range []int{10, 20, 30, 40} {
		s.record(StageNoise, time.Duration(ms)*time.Millisecond)
	}

	timing := s.Snapshot().Stages[StageNoise]
	assert.Equal(t, int64(4), timing.Count)
	assert.Equal(t, 30*time.Millisecond, timing.Avg, "average covers the window only")
	assert.Equal(t, 10*time.Millisecond, timing.Min)
	assert.Equal(t, 40*time.Millisecond, timing.Max)

	assert.Zero(t, s.Snapshot().Stages[StageSink].Count)
}

func TestCounters(t *testing.T) {
	s := newStats(0)
	s.markStarted(time.Now().Add(-time.Second))
	s.addFrame(0, true)
	s.addFrame(2, false)
	s.addFrame(1, false)
	s.addSkipped()

	snap := s.Snapshot()
	assert.Equal(t, int64(3), snap.Frames)
	assert.Equal(t, int64(1), snap.Bootstrap)
	assert.Equal(t, int64(3), snap.Regions)
	assert.Equal(t, int64(1), snap.Skipped)
	assert.Greater(t, snap.FPS, 0.0)
	assert.LessOrEqual(t, snap.FPS, 3.0)
	assert.Positive(t, snap.Runtime.Goroutines)
	assert.NotEqual(t, newStats(0).RunID(), s.RunID())
}

func TestSnapshotLogValue(t *testing.T) {
	s := newStats(0)
	done := s.startStage(StageBackground)
	done()

	v := s.Snapshot().LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())

	keys := map[string]bool{}
	for _, a := range v.Group() {
		keys[a.Key] = true
	}
	for _, k := range []string{"run", "frames", "skipped", "regions", "fps", "background", "runtime"} {
		assert.True(t, keys[k], k)
	}
	assert.False(t, keys["sink"], "untimed stages are omitted")
}
