package pipeline

import (
	"errors"
	"fmt"
)

// ErrHalted is returned once the pipeline has seen a score vector that does
// not match the class table. It stays halted for the rest of the session.
var ErrHalted = errors.New("pipeline: halted after score shape mismatch")

// Stage names the step of a cycle that failed.
type Stage string

const (
	StageFrame      Stage = "frame"
	StagePreprocess Stage = "preprocess"
	StageInfer      Stage = "infer"
	StageInterpret  Stage = "interpret"
)

// CycleError is a failed classification cycle.
type CycleError struct {
	Cycle string
	Stage Stage
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("pipeline: cycle %s failed at %s: %v", e.Cycle, e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}
