// Package sink - pipeline.Sink adapters: structured logs, annotated image
// files, a websocket broadcast hub and fan-out.
package sink

import (
	"log/slog"

	"github.com/nvr-ai/go-motion/pipeline"
)

// Log writes one structured record per frame. Frames with motion are logged
// at info level, quiet and bootstrap frames at debug level.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log sink writing to logger, or to slog.Default() when
// logger is nil.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Put logs res. It never fails.
func (l *Log) Put(res pipeline.Result) error {
	if res.Frame == nil {
		return nil
	}
	if len(res.Regions) == 0 {
		l.logger.Debug("motion: none",
			"seq", res.Frame.Seq(),
			"bootstrap", res.Bootstrap,
		)
		return nil
	}

	boxes := make([]string, len(res.Regions))
	for i, r := range res.Regions {
		boxes[i] = r.String()
	}
	l.logger.Info("motion: detected",
		"seq", res.Frame.Seq(),
		"timestamp", res.Frame.Timestamp(),
		"count", len(res.Regions),
		"regions", boxes,
	)
	return nil
}
