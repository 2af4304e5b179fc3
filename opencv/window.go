package opencv

import (
	"context"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-motion/pipeline"
)

// Window shows every result in a desktop window with the regions outlined.
// Pressing q or Esc in the window calls the cancel function given to
// NewWindow; the pipeline then stops before its next frame.
type Window struct {
	window *gocv.Window
	cancel context.CancelFunc
	box    color.RGBA
}

// NewWindow opens a named display window.
func NewWindow(name string, cancel context.CancelFunc) *Window {
	return &Window{
		window: gocv.NewWindow(name),
		cancel: cancel,
		box:    color.RGBA{0, 0, 255, 0},
	}
}

// Put draws and displays res, then polls the keyboard for one millisecond.
func (w *Window) Put(res pipeline.Result) error {
	if res.Frame == nil {
		return nil
	}
	img, err := gocv.ImageToMatRGB(res.Frame.Image())
	if err != nil {
		return errors.Wrap(err, "opencv: convert frame")
	}
	defer img.Close()

	for _, r := range res.Regions {
		gocv.Rectangle(&img, r.Bounds, w.box, 2)
	}
	w.window.IMShow(img)

	switch w.window.WaitKey(1) {
	case 'q', 27:
		if w.cancel != nil {
			w.cancel()
		}
	}
	return nil
}

// Close closes the window.
func (w *Window) Close() error {
	return w.window.Close()
}
