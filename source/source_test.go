package source

import (
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/frame"
)

func gray(t *testing.T, seq int64, w, h int, v uint8) *frame.Frame {
	t.Helper()
	f, err := frame.Uniform(seq, time.Unix(0, 0), w, h, v)
	require.NoError(t, err)
	return f
}

func drain(t *testing.T, src Source) []*frame.Frame {
	t.Helper()
	var out []*frame.Frame
	for {
		f, err := src.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, f)
	}
}

func TestSlice(t *testing.T) {
	s := NewSlice(gray(t, 0, 2, 2, 1), gray(t, 1, 2, 2, 2))
	assert.Equal(t, 2, s.Len())

	got := drain(t, s)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[1].Seq())

	_, err := s.Next(context.Background())
	assert.Equal(t, io.EOF, err, "EOF is sticky")
}

func TestSliceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSlice(gray(t, 0, 2, 2, 1)).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSyntheticScene(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.Frames = 52
	cfg.Step = image.Pt(2, 0)
	src, err := NewSynthetic(cfg)
	require.NoError(t, err)

	frames := drain(t, src)
	require.Len(t, frames, 52)

	for _, f := range frames[:50] {
		assert.Equal(t, []uint8{128}, f.Pixel(25, 25))
	}
	assert.Equal(t, []uint8{255}, frames[50].Pixel(20, 20))
	assert.Equal(t, []uint8{255}, frames[50].Pixel(29, 29))
	assert.Equal(t, []uint8{128}, frames[50].Pixel(30, 30))

	assert.Equal(t, image.Rect(22, 20, 32, 30), src.ObjectAt(51))
	assert.Equal(t, []uint8{255}, frames[51].Pixel(31, 20))
	assert.Equal(t, cfg.Interval, frames[1].Timestamp().Sub(frames[0].Timestamp()))
}

func TestSyntheticNoiseIsDeterministic(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.Noise = 3
	cfg.Frames = 1

	a, err := NewSynthetic(cfg)
	require.NoError(t, err)
	b, err := NewSynthetic(cfg)
	require.NoError(t, err)

	fa, fb := drain(t, a)[0], drain(t, b)[0]
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			require.Equal(t, fa.Pixel(x, y), fb.Pixel(x, y))
			v := int(fa.Pixel(x, y)[0])
			require.InDelta(t, 128, v, 3)
		}
	}
}

func TestSyntheticValidation(t *testing.T) {
	for _, mutate := range []func(*SyntheticConfig){
		func(c *SyntheticConfig) { c.Width = 0 },
		func(c *SyntheticConfig) { c.StaticFrames = -1 },
		func(c *SyntheticConfig) { c.Frames = -1 },
		func(c *SyntheticConfig) { c.Noise = 300 },
	} {
		cfg := DefaultSyntheticConfig()
		mutate(&cfg)
		_, err := NewSynthetic(cfg)
		assert.True(t, common.IsConfigurationError(err))
	}
}

func writeImage(t *testing.T, dir, name string, v uint8) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 0xff
	}
	require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))
}

func TestDirectoryOrder(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "frame-10.png", 30)
	writeImage(t, dir, "frame-2.png", 20)
	writeImage(t, dir, "frame-1.png", 10)
	writeImage(t, dir, "extra.png", 40)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, []int{1, 2, 10, 11}, []int{files[0].Frame, files[1].Frame, files[2].Frame, files[3].Frame})
	assert.Equal(t, "extra.png", filepath.Base(files[3].Path))

	src, err := NewDirectory(dir, 40*time.Millisecond)
	require.NoError(t, err)
	frames := drain(t, src)
	require.Len(t, frames, 4)
	for i, want := range []uint8{10, 20, 30, 40} {
		assert.Equal(t, int64(i), frames[i].Seq())
		assert.Equal(t, 3, frames[i].Channels())
		assert.Equal(t, image.Rect(0, 0, 4, 3), frames[i].Bounds())
		assert.Equal(t, []uint8{want, want, want}, frames[i].Pixel(1, 1))
	}
}

func TestDirectoryErrors(t *testing.T) {
	_, err := NewDirectory(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)

	_, err = NewDirectory(t.TempDir(), 0)
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-0.png"), []byte("not a png"), 0o644))
	src, err := NewDirectory(dir, 0)
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestTransforms(t *testing.T) {
	rgb, err := frame.Uniform(7, time.Unix(5, 0), 8, 6, 200, 100, 50)
	require.NoError(t, err)

	resize, err := Resize(4, 3)
	require.NoError(t, err)
	blurred, err := Blur(1)
	require.NoError(t, err)

	src := WithTransforms(NewSlice(rgb), resize, Grayscale(), blurred)
	frames := drain(t, src)
	require.Len(t, frames, 1)

	f := frames[0]
	assert.Equal(t, int64(7), f.Seq())
	assert.Equal(t, time.Unix(5, 0), f.Timestamp())
	assert.Equal(t, image.Rect(0, 0, 4, 3), f.Bounds())
	assert.Equal(t, 1, f.Channels())

	want := color.GrayModel.Convert(color.RGBA{200, 100, 50, 0xff}).(color.Gray).Y
	assert.InDelta(t, int(want), int(f.Pixel(1, 1)[0]), 20)
}

func TestResizeKeepsUniformValue(t *testing.T) {
	f := gray(t, 0, 16, 16, 90)
	half, err := Resize(8, 0)
	require.NoError(t, err)
	out, err := half(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 8), out.Bounds())
	assert.Equal(t, 1, out.Channels())
	assert.InDelta(t, 90, int(out.Pixel(3, 3)[0]), 1)

	identity, err := Resize(16, 16)
	require.NoError(t, err)
	same, err := identity(f)
	require.NoError(t, err)
	assert.Same(t, f, same)
}

func TestTransformErrors(t *testing.T) {
	f := gray(t, 0, 4, 4, 1)

	tests := []struct {
		name  string
		build func() (Transform, error)
	}{
		{"resize zero", func() (Transform, error) { return Resize(0, 0) }},
		{"resize negative width", func() (Transform, error) { return Resize(-1, 4) }},
		{"resize negative height", func() (Transform, error) { return Resize(4, -1) }},
		{"blur negative", func() (Transform, error) { return Blur(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transform, err := tt.build()
			assert.True(t, common.IsConfigurationError(err))
			assert.Nil(t, transform)
		})
	}

	none, err := Blur(0)
	require.NoError(t, err)
	noop, err := none(f)
	require.NoError(t, err)
	assert.Same(t, f, noop)

	failing := func(*frame.Frame) (*frame.Frame, error) { return nil, assert.AnError }
	_, err = WithTransforms(NewSlice(f), failing).Next(context.Background())
	assert.ErrorIs(t, err, assert.AnError)

	_, err = WithTransforms(NewSlice(), failing).Next(context.Background())
	assert.Equal(t, io.EOF, err)
}
