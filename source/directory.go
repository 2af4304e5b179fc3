package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-motion/frame"
)

// imageExtensions are the file types Directory decodes.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// ImageFile is one decodable file of a Directory.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from a "frame-N" name, or the file's
	// position in name order when the name carries no number.
	Frame int
}

// Directory replays the images of a directory as frames, ordered by the
// number in their "frame-N.ext" names. Files are decoded lazily, one per Next.
type Directory struct {
	files    []ImageFile
	next     int
	interval time.Duration
	start    time.Time
}

// ListImageFiles returns the image files of dir in frame order.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The image files sorted by frame number, then name.
//   - error: If dir cannot be read.
func ListImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "source: read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !imageExtensions[ext] {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())), "frame-"))
		if err != nil {
			n = -1
		}
		files = append(files, ImageFile{Path: filepath.Join(dir, entry.Name()), Frame: n})
	}

	// os.ReadDir sorts by name, so unnumbered files keep name order behind
	// the numbered ones.
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i].Frame, files[j].Frame
		if a < 0 || b < 0 {
			return a >= 0 && b < 0
		}
		return a < b
	})
	numbered := 0
	for i := range files {
		if files[i].Frame >= 0 {
			numbered = files[i].Frame + 1
			continue
		}
		files[i].Frame = numbered
		numbered++
	}
	return files, nil
}

// NewDirectory lists dir and returns a source over its images. Frame
// timestamps advance by interval from the time of the call.
func NewDirectory(dir string, interval time.Duration) (*Directory, error) {
	files, err := ListImageFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("source: no images in %s", dir)
	}
	return &Directory{files: files, interval: interval, start: time.Now()}, nil
}

// Files returns the files the source replays.
func (d *Directory) Files() []ImageFile {
	return d.files
}

// Next decodes the next image. A file that fails to decode is a read error.
func (d *Directory) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.next >= len(d.files) {
		return nil, io.EOF
	}
	file := d.files[d.next]

	img, err := imaging.Open(file.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "source: decode %s", file.Path)
	}
	seq := int64(d.next)
	f, err := frame.FromImage(seq, d.start.Add(time.Duration(seq)*d.interval), img)
	if err != nil {
		return nil, errors.Wrapf(err, "source: convert %s", file.Path)
	}
	d.next++
	return f, nil
}
