package sink

import "github.com/nvr-ai/go-motion/pipeline"

// Multi fans every result out to sinks in order. The first failing sink stops
// the fan-out and its error is returned unmodified.
type Multi []pipeline.Sink

// Put forwards res to every sink.
func (m Multi) Put(res pipeline.Result) error {
	for _, s := range m {
		if err := s.Put(res); err != nil {
			return err
		}
	}
	return nil
}
