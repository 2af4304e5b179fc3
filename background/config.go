package background

import (
	"github.com/nvr-ai/go-motion/common"
)

// Config contains the parameters of the mixture-of-Gaussians background model.
type Config struct {
	// ComponentsPerPixel is the number of Gaussian components K kept per pixel.
	ComponentsPerPixel int
	// LearningRate (alpha) controls how quickly weights and distributions adapt.
	LearningRate float32
	// MatchThreshold is the sigma multiplier below which a sample matches a component.
	MatchThreshold float32
	// BackgroundWeightFraction is the cumulative weight, taken over the heaviest
	// components first, that is considered background.
	BackgroundWeightFraction float32
	// InitialVariance seeds the variance of a freshly created component.
	InitialVariance float32
	// MinVariance is the variance floor. It keeps the distance computation finite.
	MinVariance float32
	// MaxVariance caps the variance of a component.
	MaxVariance float32
	// BootstrapFrames is the number of frames during which the model is
	// considered to be learning and its classification unreliable.
	BootstrapFrames int
}

// DefaultConfig returns a default configuration for the background model.
//
// The variance bounds follow the usual MOG2 defaults on an 8-bit scale
// (15, 4 and 75); the learning rate matches the motion detector's 0.01.
func DefaultConfig() Config {
	return Config{
		ComponentsPerPixel:       5,
		LearningRate:             0.01,
		MatchThreshold:           2.5,
		BackgroundWeightFraction: 0.7,
		InitialVariance:          15,
		MinVariance:              4,
		MaxVariance:              75,
		BootstrapFrames:          1,
	}
}

// Validate checks every parameter and returns a *common.ConfigurationError for
// the first one that is out of range.
func (c Config) Validate() error {
	switch {
	case c.ComponentsPerPixel < 1:
		return common.NewConfigurationError("ComponentsPerPixel", c.ComponentsPerPixel, "must be >= 1")
	case c.ComponentsPerPixel > 255:
		return common.NewConfigurationError("ComponentsPerPixel", c.ComponentsPerPixel, "must be <= 255")
	case !(c.LearningRate > 0 && c.LearningRate <= 1):
		return common.NewConfigurationError("LearningRate", c.LearningRate, "must be in (0,1]")
	case !(c.MatchThreshold > 0):
		return common.NewConfigurationError("MatchThreshold", c.MatchThreshold, "must be > 0")
	case !(c.BackgroundWeightFraction > 0 && c.BackgroundWeightFraction <= 1):
		return common.NewConfigurationError("BackgroundWeightFraction", c.BackgroundWeightFraction, "must be in (0,1]")
	case !(c.MinVariance > 0):
		return common.NewConfigurationError("MinVariance", c.MinVariance, "must be > 0")
	case !(c.MaxVariance >= c.MinVariance):
		return common.NewConfigurationError("MaxVariance", c.MaxVariance, "must be >= MinVariance")
	case !(c.InitialVariance >= c.MinVariance && c.InitialVariance <= c.MaxVariance):
		return common.NewConfigurationError("InitialVariance", c.InitialVariance, "must be within [MinVariance, MaxVariance]")
	case c.BootstrapFrames < 1:
		return common.NewConfigurationError("BootstrapFrames", c.BootstrapFrames, "must be >= 1")
	}
	return nil
}
