package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotIdle is returned by Run when the pipeline has already been started.
	// A stopped pipeline cannot be restarted; build a new one.
	ErrNotIdle = errors.New("pipeline: not idle")
	// ErrNilFrame is the cause of a ReadError when a source returns neither a
	// frame nor an error.
	ErrNilFrame = errors.New("pipeline: source returned nil frame")
)

// ReadError reports a FrameSource failure other than a clean end of stream.
// It is fatal to the run; retrying is the source's responsibility.
type ReadError struct {
	// Seq is the number of frames successfully read before the failure.
	Seq int64
	// Err is the source's error.
	Err error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("pipeline: read frame %d: %v", e.Seq, e.Err)
}

// Unwrap returns the source's error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReadError reports whether err is, or wraps, a *ReadError.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}
