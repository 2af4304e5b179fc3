// Package opencv - gocv adapters: a VideoCapture frame source and a display
// window sink.
//
// This package needs OpenCV at build time; the rest of the module does not.
package opencv

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-motion/frame"
)

// VideoSource reads frames from a video file or a capture device.
//
// For files a failed read is the end of the stream. For devices it is a read
// error: the camera went away.
type VideoSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	device  bool
	name    string
	seq     int64
	empty   int
}

// maxEmptyReads bounds how many consecutive empty mats a device may return
// before it is treated as failed.
const maxEmptyReads = 100

// OpenFile opens a video file.
//
// Arguments:
//   - path: The file path or a URL understood by OpenCV (e.g. rtsp://...).
//
// Returns:
//   - *VideoSource: The source; Close it when done.
//   - error: If the file cannot be opened.
func OpenFile(path string) (*VideoSource, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opencv: open %s", path)
	}
	return &VideoSource{capture: capture, mat: gocv.NewMat(), name: path}, nil
}

// OpenDevice opens a capture device such as a webcam.
//
// @example
// src, err := opencv.OpenDevice(0)
//
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// defer src.Close()
func OpenDevice(id int) (*VideoSource, error) {
	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, errors.Wrapf(err, "opencv: open device %d", id)
	}
	return &VideoSource{capture: capture, mat: gocv.NewMat(), device: true, name: strconv.Itoa(id)}, nil
}

// Next reads and converts the next frame.
func (v *VideoSource) Next(ctx context.Context) (*frame.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ok := v.capture.Read(&v.mat); !ok {
			if v.device {
				return nil, errors.Errorf("opencv: cannot read device %s", v.name)
			}
			return nil, io.EOF
		}
		if v.mat.Empty() {
			v.empty++
			if v.empty > maxEmptyReads {
				return nil, errors.Errorf("opencv: %d empty reads from %s", v.empty, v.name)
			}
			continue
		}
		v.empty = 0

		img, err := v.mat.ToImage()
		if err != nil {
			return nil, errors.Wrap(err, "opencv: convert mat")
		}
		f, err := frame.FromImage(v.seq, time.Now(), img)
		if err != nil {
			return nil, err
		}
		v.seq++
		return f, nil
	}
}

// Close releases the capture and its buffer.
func (v *VideoSource) Close() error {
	if err := v.mat.Close(); err != nil {
		return err
	}
	return v.capture.Close()
}
