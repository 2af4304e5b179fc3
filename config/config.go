// Package config - environment driven settings for the motiond command.
//
// Load reads an optional .env file and then MOTION_* environment variables.
// Unset variables keep each stage's default; malformed ones are a
// *common.ConfigurationError.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-motion/background"
	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/morphology"
	"github.com/nvr-ai/go-motion/pipeline"
	"github.com/nvr-ai/go-motion/regions"
)

// Environment variable names.
const (
	EnvComponents      = "MOTION_COMPONENTS"
	EnvLearningRate    = "MOTION_LEARNING_RATE"
	EnvMatchThreshold  = "MOTION_MATCH_THRESHOLD"
	EnvBackgroundRatio = "MOTION_BACKGROUND_RATIO"
	EnvInitialVariance = "MOTION_INITIAL_VARIANCE"
	EnvMinVariance     = "MOTION_MIN_VARIANCE"
	EnvMaxVariance     = "MOTION_MAX_VARIANCE"
	EnvBootstrapFrames = "MOTION_BOOTSTRAP_FRAMES"
	EnvKernelShape     = "MOTION_KERNEL_SHAPE"
	EnvKernelSize      = "MOTION_KERNEL_SIZE"
	EnvMinArea         = "MOTION_MIN_AREA"
	EnvApproximation   = "MOTION_APPROXIMATION"
	EnvQueueCapacity   = "MOTION_QUEUE"
	EnvWebSocketAddr   = "MOTION_WS_ADDR"
	EnvOutputDir       = "MOTION_OUTPUT_DIR"
	EnvReportEvery     = "MOTION_REPORT_EVERY"
	EnvLogLevel        = "MOTION_LOG_LEVEL"
	EnvMinDuration     = "MOTION_MIN_DURATION"
	EnvEventGap        = "MOTION_EVENT_GAP"
)

// Settings is everything motiond can be configured with.
type Settings struct {
	Background background.Config
	Noise      morphology.Config
	Regions    regions.Config

	// QueueCapacity decouples capture from processing when > 0.
	QueueCapacity int
	// WebSocketAddr serves the detection event stream when set, e.g. ":8080".
	WebSocketAddr string
	// OutputDir saves annotated motion frames when set.
	OutputDir string
	// ReportEvery logs pipeline stats every n frames; 0 disables it.
	ReportEvery int
	// LogLevel is the minimum slog level.
	LogLevel slog.Level
	// MinMotionDuration is how long motion must last to be reported as an event.
	MinMotionDuration time.Duration
	// EventGap is how long motion may pause before an event ends.
	EventGap time.Duration
}

// Default returns the settings used when no variable is set.
func Default() *Settings {
	return &Settings{
		Background:        background.DefaultConfig(),
		Noise:             morphology.DefaultConfig(),
		Regions:           regions.DefaultConfig(),
		ReportEvery:       300,
		LogLevel:          slog.LevelInfo,
		MinMotionDuration: 1500 * time.Millisecond,
		EventGap:          100 * time.Millisecond,
	}
}

// Load builds Settings from the environment.
//
// Arguments:
//   - envFile: A .env file to load first. Empty loads ./.env if it exists.
//     Variables already set in the process environment win over the file.
//
// Returns:
//   - *Settings: The settings.
//   - error: If envFile cannot be read or a value is malformed or out of range.
//
// @example
// settings, err := config.Load("")
//
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// p, err := pipeline.New(settings.Pipeline(), src, sink)
func Load(envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "config: load %s", envFile)
		}
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "config: load .env")
	}

	s := Default()
	e := &env{}
	s.Background.ComponentsPerPixel = e.int(EnvComponents, s.Background.ComponentsPerPixel)
	s.Background.LearningRate = e.float(EnvLearningRate, s.Background.LearningRate)
	s.Background.MatchThreshold = e.float(EnvMatchThreshold, s.Background.MatchThreshold)
	s.Background.BackgroundWeightFraction = e.float(EnvBackgroundRatio, s.Background.BackgroundWeightFraction)
	s.Background.InitialVariance = e.float(EnvInitialVariance, s.Background.InitialVariance)
	s.Background.MinVariance = e.float(EnvMinVariance, s.Background.MinVariance)
	s.Background.MaxVariance = e.float(EnvMaxVariance, s.Background.MaxVariance)
	s.Background.BootstrapFrames = e.int(EnvBootstrapFrames, s.Background.BootstrapFrames)
	s.Noise.Size = e.int(EnvKernelSize, s.Noise.Size)
	s.Regions.MinArea = e.int(EnvMinArea, s.Regions.MinArea)
	s.QueueCapacity = e.int(EnvQueueCapacity, s.QueueCapacity)
	s.WebSocketAddr = getEnv(EnvWebSocketAddr, s.WebSocketAddr)
	s.OutputDir = getEnv(EnvOutputDir, s.OutputDir)
	s.ReportEvery = e.int(EnvReportEvery, s.ReportEvery)
	s.MinMotionDuration = e.duration(EnvMinDuration, s.MinMotionDuration)
	s.EventGap = e.duration(EnvEventGap, s.EventGap)
	if e.err != nil {
		return nil, e.err
	}

	if v := getEnv(EnvKernelShape, ""); v != "" {
		shape, err := morphology.ParseShape(v)
		if err != nil {
			return nil, err
		}
		s.Noise.Shape = shape
	}
	if v := getEnv(EnvApproximation, ""); v != "" {
		approx, err := regions.ParseApproximation(v)
		if err != nil {
			return nil, err
		}
		s.Regions.Approximation = approx
	}
	if v := getEnv(EnvLogLevel, ""); v != "" {
		if err := s.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, common.NewConfigurationError(EnvLogLevel, v, "must be debug, info, warn or error")
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every stage configuration and the CLI-level settings.
func (s *Settings) Validate() error {
	if err := s.Background.Validate(); err != nil {
		return err
	}
	if _, err := morphology.Element(s.Noise.Shape, s.Noise.Size); err != nil {
		return err
	}
	if err := s.Regions.Validate(); err != nil {
		return err
	}
	if s.QueueCapacity < 0 {
		return common.NewConfigurationError("QueueCapacity", s.QueueCapacity, "must not be negative")
	}
	if s.ReportEvery < 0 {
		return common.NewConfigurationError("ReportEvery", s.ReportEvery, "must not be negative")
	}
	if s.MinMotionDuration < 0 {
		return common.NewConfigurationError("MinMotionDuration", s.MinMotionDuration, "must not be negative")
	}
	if s.EventGap < 0 {
		return common.NewConfigurationError("EventGap", s.EventGap, "must not be negative")
	}
	return nil
}

// Pipeline returns the stage configuration.
func (s *Settings) Pipeline() pipeline.Config {
	return pipeline.Config{
		Background: s.Background,
		Noise:      s.Noise,
		Regions:    s.Regions,
	}
}

// env parses typed variables, keeping the first failure.
type env struct {
	err error
}

func (e *env) int(key string, defaultVal int) int {
	v := getEnv(key, "")
	if v == "" || e.err != nil {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = common.NewConfigurationError(key, v, "must be an integer")
		return defaultVal
	}
	return n
}

func (e *env) float(key string, defaultVal float32) float32 {
	v := getEnv(key, "")
	if v == "" || e.err != nil {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		e.err = common.NewConfigurationError(key, v, "must be a number")
		return defaultVal
	}
	return float32(f)
}

func (e *env) duration(key string, defaultVal time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" || e.err != nil {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = common.NewConfigurationError(key, v, "must be a duration such as 1.5s")
		return defaultVal
	}
	return d
}

func getEnv(key string, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}
