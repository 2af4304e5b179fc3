package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/frame"
)

// Queue decouples capture from processing. A capture goroutine reads the
// wrapped source as fast as it produces frames and keeps at most capacity of
// them; when the consumer falls behind the oldest buffered frame is dropped.
//
// Queue is itself a FrameSource with a single consumer. The source's terminal
// error, io.EOF included, is delivered after every buffered frame.
type Queue struct {
	src      FrameSource
	capacity int

	mu     sync.Mutex
	buf    []*frame.Frame
	err    error
	notify chan struct{}

	drops atomic.Uint64
	// cancel is set under mu by Start; nil until then.
	cancel context.CancelFunc
	done   chan struct{}
}

// NewQueue wraps src with a drop-oldest buffer of the given capacity.
//
// Arguments:
//   - src: The capture source.
//   - capacity: The maximum number of buffered frames; must be at least 1.
//
// Returns:
//   - *Queue: The queue, not yet capturing; call Start.
//   - error: A *common.ConfigurationError for a nil source or bad capacity.
func NewQueue(src FrameSource, capacity int) (*Queue, error) {
	if src == nil {
		return nil, common.NewConfigurationError("FrameSource", nil, "must not be nil")
	}
	if capacity < 1 {
		return nil, common.NewConfigurationError("QueueCapacity", capacity, "must be at least 1")
	}
	return &Queue{
		src:      src,
		capacity: capacity,
		buf:      make([]*frame.Frame, 0, capacity),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the capture goroutine. Capture stops when ctx is cancelled,
// Close is called or the source returns an error. Calling Start more than once
// has no effect.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return
	}
	ctx, q.cancel = context.WithCancel(ctx)
	go q.capture(ctx)
}

func (q *Queue) capture(ctx context.Context) {
	defer close(q.done)

	for {
		f, err := q.src.Next(ctx)
		if err == nil && f == nil {
			err = ErrNilFrame
		}

		q.mu.Lock()
		if err != nil {
			q.err = err
			q.mu.Unlock()
			q.signal()
			return
		}
		if len(q.buf) == q.capacity {
			q.buf[0] = nil
			q.buf = q.buf[1:]
			q.drops.Add(1)
		}
		q.buf = append(q.buf, f)
		q.mu.Unlock()
		q.signal()
	}
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Next returns the oldest buffered frame, waiting for one if the buffer is
// empty. Once the buffer drains after a source failure, Next returns the
// source's error on every call.
func (q *Queue) Next(ctx context.Context) (*frame.Frame, error) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			f := q.buf[0]
			q.buf[0] = nil
			q.buf = q.buf[1:]
			q.mu.Unlock()
			return f, nil
		}
		if q.err != nil {
			err := q.err
			q.mu.Unlock()
			return nil, err
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Drops returns how many frames were discarded because the buffer was full.
func (q *Queue) Drops() uint64 {
	return q.drops.Load()
}

// Done is closed when the capture goroutine exits.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Close stops capture and waits for the capture goroutine to exit. Buffered
// frames remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-q.done
}
