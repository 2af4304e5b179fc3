// Package source - FrameSource adapters: in-memory slices, synthetic scenes,
// image directories and per-frame transforms.
//
// Every type here satisfies pipeline.FrameSource. Sources return io.EOF at a
// clean end of stream.
package source

import (
	"context"
	"io"

	"github.com/nvr-ai/go-motion/frame"
)

// Source is the frame producer contract shared with pipeline.FrameSource.
type Source interface {
	Next(ctx context.Context) (*frame.Frame, error)
}

// Func adapts a function to the Source interface.
type Func func(ctx context.Context) (*frame.Frame, error)

// Next calls f(ctx).
func (f Func) Next(ctx context.Context) (*frame.Frame, error) {
	return f(ctx)
}

// Slice replays a fixed list of frames, then returns io.EOF.
type Slice struct {
	frames []*frame.Frame
	next   int
}

// NewSlice returns a source yielding frames in order.
func NewSlice(frames ...*frame.Frame) *Slice {
	return &Slice{frames: frames}
}

// Next returns the next frame, io.EOF once exhausted, or ctx.Err() when ctx is
// done.
func (s *Slice) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// Len returns the number of frames not yet read.
func (s *Slice) Len() int {
	return len(s.frames) - s.next
}
