package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInferenceFailure wraps any error reported by the engine.
	ErrInferenceFailure = errors.New("model: inference failed")

	// ErrInferenceTimeout is returned when a call exceeds its deadline.
	ErrInferenceTimeout = fmt.Errorf("%w: timed out", ErrInferenceFailure)

	// ErrEngineClosed is returned for calls made after Serial.Close.
	ErrEngineClosed = fmt.Errorf("%w: engine closed", ErrInferenceFailure)
)
