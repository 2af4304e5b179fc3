package pipeline

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage names a timed step of the frame loop.
type Stage string

const (
	// StageBackground is BackgroundModel.Apply.
	StageBackground Stage = "background"
	// StageNoise is NoiseFilter.Apply.
	StageNoise Stage = "noise"
	// StageRegions is RegionExtractor.Extract.
	StageRegions Stage = "regions"
	// StageSink is Sink.Put.
	StageSink Stage = "sink"
)

var stages = []Stage{StageBackground, StageNoise, StageRegions, StageSink}

// defaultTimingWindow keeps roughly 10 seconds of samples at 30 FPS.
const defaultTimingWindow = 300

// Timing summarizes the recent durations of one stage.
type Timing struct {
	Count int64
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Snapshot is a copy of the pipeline counters at one point in time.
type Snapshot struct {
	RunID     string
	Started   time.Time
	Frames    int64
	Skipped   int64
	Bootstrap int64
	Regions   int64
	Stages    map[Stage]Timing

	// FPS is the mean processing rate since the run started.
	FPS     float64
	Runtime RuntimeStats
}

// RuntimeStats is a sample of the Go runtime taken with the snapshot.
type RuntimeStats struct {
	Goroutines  int
	HeapAlloc   uint64
	HeapObjects uint64
	NumGC       uint32
}

func sampleRuntime() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeStats{
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   mem.HeapAlloc,
		HeapObjects: mem.HeapObjects,
		NumGC:       mem.NumGC,
	}
}

// LogValue renders the snapshot as a slog group.
func (s Snapshot) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("run", s.RunID),
		slog.Int64("frames", s.Frames),
		slog.Int64("skipped", s.Skipped),
		slog.Int64("bootstrap", s.Bootstrap),
		slog.Int64("regions", s.Regions),
		slog.Float64("fps", s.FPS),
	}
	for _, st := range stages {
		if t, ok := s.Stages[st]; ok && t.Count > 0 {
			attrs = append(attrs, slog.Group(string(st),
				slog.Duration("avg", t.Avg),
				slog.Duration("min", t.Min),
				slog.Duration("max", t.Max),
			))
		}
	}
	attrs = append(attrs, slog.Group("runtime",
		slog.Int("goroutines", s.Runtime.Goroutines),
		slog.Uint64("heap_alloc", s.Runtime.HeapAlloc),
		slog.Uint64("heap_objects", s.Runtime.HeapObjects),
		slog.Any("gc_cycles", s.Runtime.NumGC),
	))
	return slog.GroupValue(attrs...)
}

// Stats tracks per-run counters and stage timings. It is safe to read from
// another goroutine while the pipeline runs.
type Stats struct {
	mu        sync.RWMutex
	runID     string
	started   time.Time
	frames    int64
	skipped   int64
	bootstrap int64
	regions   int64
	timers    map[Stage]*timeTracker
	window    int
}

// timeTracker keeps a sliding window of durations.
type timeTracker struct {
	durations []time.Duration
	total     time.Duration
	min       time.Duration
	max       time.Duration
	count     int64
}

func newStats(window int) *Stats {
	if window <= 0 {
		window = defaultTimingWindow
	}
	s := &Stats{
		runID:  uuid.New().String(),
		timers: make(map[Stage]*timeTracker, len(stages)),
		window: window,
	}
	for _, st := range stages {
		s.timers[st] = &timeTracker{durations: make([]time.Duration, 0, window)}
	}
	return s
}

// RunID returns the unique identifier of the run.
func (s *Stats) RunID() string {
	return s.runID
}

func (s *Stats) markStarted(t time.Time) {
	s.mu.Lock()
	s.started = t
	s.mu.Unlock()
}

// startStage begins timing a stage and returns the function that records it.
func (s *Stats) startStage(stage Stage) func() {
	start := time.Now()
	return func() {
		s.record(stage, time.Since(start))
	}
}

func (s *Stats) record(stage Stage, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.timers[stage]
	if t.count == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
	t.durations = append(t.durations, d)
	t.total += d
	if len(t.durations) > s.window {
		t.total -= t.durations[0]
		t.durations = t.durations[1:]
	}
	t.count++
}

func (s *Stats) addFrame(regions int, bootstrap bool) {
	s.mu.Lock()
	s.frames++
	s.regions += int64(regions)
	if bootstrap {
		s.bootstrap++
	}
	s.mu.Unlock()
}

func (s *Stats) addSkipped() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters together with a runtime
// sample. Sampling the runtime briefly stops the world; call it at report
// intervals, not per frame.
func (s *Stats) Snapshot() Snapshot {
	rt := sampleRuntime()

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		RunID:     s.runID,
		Started:   s.started,
		Frames:    s.frames,
		Skipped:   s.skipped,
		Bootstrap: s.bootstrap,
		Regions:   s.regions,
		Stages:    make(map[Stage]Timing, len(s.timers)),
		Runtime:   rt,
	}
	if elapsed := time.Since(s.started); !s.started.IsZero() && elapsed > 0 {
		snap.FPS = float64(s.frames) / elapsed.Seconds()
	}
	for st, t := range s.timers {
		timing := Timing{Count: t.count, Min: t.min, Max: t.max}
		if n := len(t.durations); n > 0 {
			timing.Avg = t.total / time.Duration(n)
		}
		snap.Stages[st] = timing
	}
	return snap
}
