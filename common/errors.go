// Package common - error taxonomy shared by the motion pipeline packages.
package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError reports an invalid construction parameter.
//
// It is only ever returned by constructors (background.New, morphology.NewFilter,
// regions.NewExtractor, pipeline.New, config.Load); nothing in the frame loop
// produces one.
type ConfigurationError struct {
	// Field is the name of the offending option, e.g. "LearningRate".
	Field string
	// Value is the rejected value.
	Value any
	// Reason describes the accepted range.
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// NewConfigurationError returns a *ConfigurationError for the given field.
//
// Arguments:
//   - field: The option name.
//   - value: The rejected value.
//   - reason: The constraint that was violated.
//
// Returns:
//   - error: A *ConfigurationError.
//
// @example
// if cfg.LearningRate <= 0 || cfg.LearningRate > 1 {
// return common.NewConfigurationError("LearningRate", cfg.LearningRate, "must be in (0,1]")
// }
func NewConfigurationError(field string, value any, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// IsConfigurationError reports whether err, or any error it wraps, is a
// *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
