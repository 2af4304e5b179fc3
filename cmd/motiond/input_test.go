package main

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputFlags(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte{0}, 0o644))
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte{0}, 0o644))

	in, err := validateInputFlags("", "", false, 2)
	require.NoError(t, err)
	assert.Equal(t, &InputConfig{Type: InputCamera, DeviceID: 2}, in)

	in, err = validateInputFlags(video, "", false, 0)
	require.NoError(t, err)
	assert.Equal(t, InputVideo, in.Type)

	in, err = validateInputFlags("rtsp://camera/stream", "", false, 0)
	require.NoError(t, err)
	assert.Equal(t, "rtsp://camera/stream", in.Path)

	in, err = validateInputFlags("", dir, false, 0)
	require.NoError(t, err)
	assert.Equal(t, InputDirectory, in.Type)

	in, err = validateInputFlags("", "", true, 0)
	require.NoError(t, err)
	assert.Equal(t, InputDemo, in.Type)

	for _, bad := range []struct {
		video, dir string
		demo       bool
		device     int
	}{
		{video, dir, false, 0},
		{"", dir, true, 0},
		{text, "", false, 0},
		{filepath.Join(dir, "missing.mp4"), "", false, 0},
		{"", video, false, 0},
		{"", "", false, -1},
	} {
		_, err := validateInputFlags(bad.video, bad.dir, bad.demo, bad.device)
		assert.Error(t, err, "%+v", bad)
	}
}

func TestParseSize(t *testing.T) {
	p, err := parseSize("")
	require.NoError(t, err)
	assert.Equal(t, image.Point{}, p)

	p, err = parseSize("320x240")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(320, 240), p)

	p, err = parseSize("640X0")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(640, 0), p)

	p, err = parseSize("720p")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1280, 720), p)

	for _, bad := range []string{"320", "ax240", "320xb", "0x0", "-1x10"} {
		_, err := parseSize(bad)
		assert.Error(t, err, bad)
	}
}
