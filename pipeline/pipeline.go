// Package pipeline - drives the motion detection frame loop.
//
// A Pipeline pulls frames from a FrameSource, runs them through the background
// model, the noise filter and the region extractor, and hands the result to a
// Sink, one frame at a time:
//
// ┌─────────────┐   ┌────────────┐   ┌─────────────┐   ┌─────────┐   ┌──────┐
// │ FrameSource │──▶│ Background │──▶│ NoiseFilter │──▶│ Regions │──▶│ Sink │
// └─────────────┘   └────────────┘   └─────────────┘   └─────────┘   └──────┘
//
// Lifecycle: Idle ──Run──▶ Running ──(EOF | read error | cancel | sink error)──▶ Stopped.
// Stopped is terminal. Running again requires a new Pipeline, and with it a
// new background model.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-motion/background"
	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/frame"
	"github.com/nvr-ai/go-motion/morphology"
	"github.com/nvr-ai/go-motion/regions"
)

// FrameSource yields frames in capture order.
//
// Next returns io.EOF at a clean end of stream. Any other error is a read
// failure and ends the run. Implementations should return promptly when ctx
// is cancelled.
type FrameSource interface {
	Next(ctx context.Context) (*frame.Frame, error)
}

// Sink consumes the result of every processed frame. It must not retain the
// Result's mask beyond the call if it intends to mutate it; the frame itself
// is immutable and may be kept.
type Sink interface {
	Put(res Result) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(res Result) error

// Put calls f(res).
func (f SinkFunc) Put(res Result) error {
	return f(res)
}

// Result is the detection outcome of one frame.
type Result struct {
	// Frame is the processed frame.
	Frame *frame.Frame
	// Regions are the moving-object regions in discovery order.
	Regions []regions.Region
	// Mask is the foreground mask after noise filtering.
	Mask *frame.Mask
	// Bootstrap is true while the background model is still learning; Regions
	// is then always empty.
	Bootstrap bool
}

// State is the lifecycle state of a Pipeline.
type State int32

const (
	// Idle pipelines have not been started.
	Idle State = iota
	// Running pipelines are inside Run.
	Running
	// Stopped pipelines have returned from Run and cannot be restarted.
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithReportEvery logs a stats snapshot every n frames. Zero disables reports.
func WithReportEvery(n int) Option {
	return func(p *Pipeline) {
		p.reportEvery = n
	}
}

// WithTimingWindow sets how many samples per stage the timing statistics keep.
func WithTimingWindow(n int) Option {
	return func(p *Pipeline) {
		p.window = n
	}
}

// Pipeline is the motion detection orchestrator.
type Pipeline struct {
	model     *background.Model
	filter    *morphology.Filter
	extractor *regions.Extractor
	source    FrameSource
	sink      Sink

	state       atomic.Int32
	stats       *Stats
	logger      *slog.Logger
	reportEvery int
	window      int
}

// New builds an idle pipeline with a fresh background model.
//
// Arguments:
//   - cfg: Stage parameters; see DefaultConfig.
//   - src: Where frames come from.
//   - sink: Where results go.
//   - opts: Optional settings.
//
// Returns:
//   - *Pipeline: The idle pipeline.
//   - error: A *common.ConfigurationError for invalid parameters or nil collaborators.
//
// @example
// p, err := pipeline.New(pipeline.DefaultConfig(), src, sink.NewLog(nil))
//
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// err = p.Run(ctx)
func New(cfg Config, src FrameSource, sink Sink, opts ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, common.NewConfigurationError("FrameSource", nil, "must not be nil")
	}
	if sink == nil {
		return nil, common.NewConfigurationError("Sink", nil, "must not be nil")
	}

	model, err := background.New(cfg.Background)
	if err != nil {
		return nil, err
	}
	filter, err := morphology.NewFilter(cfg.Noise)
	if err != nil {
		return nil, err
	}
	extractor, err := regions.NewExtractor(cfg.Regions)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		model:     model,
		filter:    filter,
		extractor: extractor,
		source:    src,
		sink:      sink,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stats = newStats(p.window)
	return p, nil
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Stats returns the run statistics. It is safe to call while Run executes.
func (p *Pipeline) Stats() *Stats {
	return p.stats
}

// Model returns the pipeline's background model. It must not be used while
// Run executes.
func (p *Pipeline) Model() *background.Model {
	return p.model
}

// Run processes frames until the source ends, fails, the sink fails or ctx is
// cancelled. Cancellation is checked once per frame, never mid-frame.
//
// Returns:
//   - nil at a clean end of stream (io.EOF from the source).
//   - ctx.Err() on cancellation.
//   - *ReadError when the source fails.
//   - The sink's error, unmodified.
//   - ErrNotIdle if the pipeline was already started.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrNotIdle
	}
	defer p.state.Store(int32(Stopped))

	p.stats.markStarted(time.Now())
	log := p.logger.With("run", p.stats.RunID())
	log.Info("pipeline: started")

	var read int64
	for {
		if err := ctx.Err(); err != nil {
			log.Info("pipeline: cancelled", "frames", read)
			return err
		}

		f, err := p.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info("pipeline: end of stream", "frames", read, "stats", p.stats.Snapshot())
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				log.Info("pipeline: cancelled", "frames", read)
				return ctxErr
			}
			log.Error("pipeline: read failed", "frames", read, "error", err)
			return &ReadError{Seq: read, Err: err}
		}
		if f == nil {
			log.Error("pipeline: read failed", "frames", read, "error", ErrNilFrame)
			return &ReadError{Seq: read, Err: ErrNilFrame}
		}
		read++

		if err := p.process(f, log); err != nil {
			log.Error("pipeline: sink failed", "seq", f.Seq(), "error", err)
			return err
		}

		if p.reportEvery > 0 && read%int64(p.reportEvery) == 0 {
			log.Info("pipeline: stats", "stats", p.stats.Snapshot())
		}
	}
}

// process runs one frame through every stage. Only sink errors are returned;
// a frame the model rejects is skipped with the model left untouched.
func (p *Pipeline) process(f *frame.Frame, log *slog.Logger) error {
	bootstrap := p.model.Bootstrapping()

	done := p.stats.startStage(StageBackground)
	mask, err := p.model.Apply(f)
	done()
	if err != nil {
		p.stats.addSkipped()
		log.Warn("pipeline: skipping frame", "seq", f.Seq(), "error", err)
		return nil
	}

	done = p.stats.startStage(StageNoise)
	clean := p.filter.Apply(mask)
	done()

	var found []regions.Region
	if !bootstrap {
		done = p.stats.startStage(StageRegions)
		found = p.extractor.Extract(clean)
		done()
	}
	p.stats.addFrame(len(found), bootstrap)

	done = p.stats.startStage(StageSink)
	err = p.sink.Put(Result{Frame: f, Regions: found, Mask: clean, Bootstrap: bootstrap})
	done()
	return err
}
