package sink

import (
	"time"

	"github.com/nvr-ai/go-motion/pipeline"
)

// EventKind tells whether a motion event began or ended.
type EventKind string

const (
	// MotionStarted fires once motion has lasted the minimum duration.
	MotionStarted EventKind = "motion_start"
	// MotionEnded fires when a reported motion has been absent longer than the gap.
	MotionEnded EventKind = "motion_end"
)

// MotionEvent summarizes a period of continuous motion in the scene.
type MotionEvent struct {
	Kind EventKind
	// ID numbers reported events from 1.
	ID int
	// Seq is the sequence number of the frame that triggered the event.
	Seq int64

	// Start and Last are the timestamps of the first and the most recent
	// frame with motion.
	Start    time.Time
	Last     time.Time
	Frames   int
	PeakArea int
}

// Duration returns the time between the first and the last frame with motion.
func (e MotionEvent) Duration() time.Duration {
	return e.Last.Sub(e.Start)
}

// Events debounces per-frame detections into motion events. Motion must last
// at least minDuration to be reported, and a reported event ends once no
// frame has had motion for longer than gap. Durations are measured on frame
// timestamps, so replayed files behave like live streams.
type Events struct {
	minDuration time.Duration
	gap         time.Duration
	emit        func(MotionEvent) error

	active   bool
	reported bool
	count    int
	current  MotionEvent
}

// NewEvents returns an Events sink calling emit for every start and end.
//
// Arguments:
//   - minDuration: How long motion must persist before it is reported.
//   - gap: How long motion may be absent before a reported event ends.
//   - emit: Receives events; its error stops the pipeline.
//
// @example
//
//	events := sink.NewEvents(1500*time.Millisecond, 100*time.Millisecond, func(ev sink.MotionEvent) error {
//	    log.Printf("%s #%d after %v", ev.Kind, ev.ID, ev.Duration())
//	    return nil
//	})
func NewEvents(minDuration, gap time.Duration, emit func(MotionEvent) error) *Events {
	return &Events{minDuration: minDuration, gap: gap, emit: emit}
}

// Put advances the event state with one frame.
func (e *Events) Put(res pipeline.Result) error {
	if res.Frame == nil {
		return nil
	}
	ts := res.Frame.Timestamp()

	if len(res.Regions) == 0 {
		if e.active && ts.Sub(e.current.Last) > e.gap {
			return e.end(res.Frame.Seq())
		}
		return nil
	}

	if !e.active {
		e.active = true
		e.reported = false
		e.current = MotionEvent{Start: ts}
	}
	e.current.Last = ts
	e.current.Frames++
	area := 0
	for _, r := range res.Regions {
		area += r.Area
	}
	if area > e.current.PeakArea {
		e.current.PeakArea = area
	}

	if !e.reported && e.current.Duration() >= e.minDuration {
		e.reported = true
		e.count++
		e.current.ID = e.count
		ev := e.current
		ev.Kind = MotionStarted
		ev.Seq = res.Frame.Seq()
		return e.emit(ev)
	}
	return nil
}

// Active reports whether motion is currently in progress.
func (e *Events) Active() bool {
	return e.active
}

// Count returns how many events have been reported.
func (e *Events) Count() int {
	return e.count
}

// Flush ends an event still in progress, as at end of stream.
func (e *Events) Flush() error {
	if !e.active {
		return nil
	}
	return e.end(-1)
}

func (e *Events) end(seq int64) error {
	e.active = false
	if !e.reported {
		return nil
	}
	ev := e.current
	ev.Kind = MotionEnded
	ev.Seq = seq
	return e.emit(ev)
}
