package pipeline

import (
	"github.com/nvr-ai/go-motion/background"
	"github.com/nvr-ai/go-motion/morphology"
	"github.com/nvr-ai/go-motion/regions"
)

// Config groups the parameters of every pipeline stage.
type Config struct {
	// Background configures the mixture-of-Gaussians model.
	Background background.Config
	// Noise configures the morphological opening.
	Noise morphology.Config
	// Regions configures component extraction.
	Regions regions.Config
}

// DefaultConfig returns the default configuration of every stage.
func DefaultConfig() Config {
	return Config{
		Background: background.DefaultConfig(),
		Noise:      morphology.DefaultConfig(),
		Regions:    regions.DefaultConfig(),
	}
}
