package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-motion/pipeline"
)

// Files saves annotated frames as PNG files named frame-NNNNNN.png after the
// frame sequence number.
type Files struct {
	dir        string
	onlyMotion bool
	masks      bool
	thickness  int
}

// FilesOption customizes a Files sink.
type FilesOption func(*Files)

// OnlyMotion skips frames without regions.
func OnlyMotion() FilesOption {
	return func(f *Files) { f.onlyMotion = true }
}

// WithMasks also saves the foreground mask as mask-NNNNNN.png.
func WithMasks() FilesOption {
	return func(f *Files) { f.masks = true }
}

// NewFiles creates dir if needed and returns a sink writing into it.
func NewFiles(dir string, opts ...FilesOption) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "sink: create %s", dir)
	}
	f := &Files{dir: dir, thickness: 2}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Path returns the file name used for the frame with sequence number seq.
func (f *Files) Path(seq int64) string {
	return filepath.Join(f.dir, fmt.Sprintf("frame-%06d.png", seq))
}

// Put writes the annotated frame. Encoding or I/O failures are returned and
// stop the pipeline.
func (f *Files) Put(res pipeline.Result) error {
	if res.Frame == nil || (f.onlyMotion && len(res.Regions) == 0) {
		return nil
	}
	seq := res.Frame.Seq()
	if err := imaging.Save(Annotate(res, f.thickness), f.Path(seq)); err != nil {
		return errors.Wrapf(err, "sink: save frame %d", seq)
	}
	if f.masks && res.Mask != nil {
		path := filepath.Join(f.dir, fmt.Sprintf("mask-%06d.png", seq))
		if err := imaging.Save(res.Mask.Image(), path); err != nil {
			return errors.Wrapf(err, "sink: save mask %d", seq)
		}
	}
	return nil
}
