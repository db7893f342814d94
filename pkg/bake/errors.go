package bake

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidRange     = errors.New("invalid frame range")
	ErrNothingToBake    = errors.New("nothing to bake")
	ErrFrameOrder       = errors.New("frames must be evaluated in increasing order")
)

// UserDataError reports malformed animation data. The message names the
// shape, action and frame when they are known.
type UserDataError struct {
	Action string
	Shape  string
	Frame  int
	// HasFrame is set when Frame is meaningful.
	HasFrame bool
	Reason   string
}

func (e *UserDataError) Error() string {
	msg := e.Reason
	if e.Shape != "" {
		msg = fmt.Sprintf("shape %s: %s", e.Shape, msg)
	}
	if e.Action != "" {
		msg = fmt.Sprintf("action %s: %s", e.Action, msg)
	}
	if e.HasFrame {
		msg = fmt.Sprintf("%s (frame %d)", msg, e.Frame)
	}
	return msg
}

// ConfigurationError reports an invalid bake option.
type ConfigurationError struct {
	Option string
	Value  float64
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s must not be negative, got %g", ErrInvalidThreshold, e.Option, e.Value)
}

// Unwrap returns ErrInvalidThreshold.
func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidThreshold
}
