package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-motion/source"
)

// Supported file extensions
var supportedVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// InputType represents the type of input being processed
type InputType int

const (
	InputCamera InputType = iota
	InputVideo
	InputDirectory
	InputDemo
)

// InputConfig holds the input configuration
type InputConfig struct {
	Type     InputType
	Path     string
	DeviceID int
}

// validateInputFlags picks the single input selected on the command line.
// With no input flag the camera device is used.
func validateInputFlags(videoPath, dirPath string, demo bool, deviceID int) (*InputConfig, error) {
	selected := 0
	for _, set := range []bool{videoPath != "", dirPath != "", demo} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return nil, fmt.Errorf("error: specify only one of --video, --dir and --demo")
	}

	switch {
	case videoPath != "":
		if strings.Contains(videoPath, "://") {
			return &InputConfig{Type: InputVideo, Path: videoPath}, nil
		}
		if err := validateFile(videoPath, supportedVideoExtensions); err != nil {
			return nil, fmt.Errorf("video validation error: %w", err)
		}
		return &InputConfig{Type: InputVideo, Path: videoPath}, nil
	case dirPath != "":
		info, err := os.Stat(dirPath)
		if err != nil {
			return nil, fmt.Errorf("directory validation error: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("directory validation error: %s is not a directory", dirPath)
		}
		return &InputConfig{Type: InputDirectory, Path: dirPath}, nil
	case demo:
		return &InputConfig{Type: InputDemo}, nil
	}

	if deviceID < 0 {
		return nil, fmt.Errorf("error: invalid device id %d", deviceID)
	}
	return &InputConfig{Type: InputCamera, DeviceID: deviceID}, nil
}

// validateFile checks if the file exists and has a supported extension
func validateFile(filePath string, supportedExtensions []string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supportedExt := range supportedExtensions {
		if ext == supportedExt {
			return nil
		}
	}

	return fmt.Errorf("unsupported file extension: %s. Supported extensions: %v", ext, supportedExtensions)
}

// parseSize parses a "WIDTHxHEIGHT" flag value or a resolution name such as
// "720p". Either side may be 0 to keep the aspect ratio. The empty string
// means no resize.
func parseSize(v string) (image.Point, error) {
	if v == "" {
		return image.Point{}, nil
	}
	if r, ok := source.LookupResolution(v); ok {
		return image.Pt(r.Width, r.Height), nil
	}
	w, h, ok := strings.Cut(strings.ToLower(v), "x")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", v)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid size %q: %w", v, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid size %q: %w", v, err)
	}
	if width < 0 || height < 0 || (width == 0 && height == 0) {
		return image.Point{}, fmt.Errorf("invalid size %q: must be positive", v)
	}
	return image.Pt(width, height), nil
}
