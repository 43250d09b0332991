package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline construction.
var (
	// ErrNoDisplay is returned when neither display variant is configured.
	ErrNoDisplay = errors.New("pipeline: no display sink configured")

	// ErrMultipleDisplays is returned when both display variants are set.
	ErrMultipleDisplays = errors.New("pipeline: window and stream sinks are mutually exclusive")

	// ErrMissingStage is returned when a required collaborator is nil.
	ErrMissingStage = errors.New("pipeline: missing stage")
)

// Stage names used in errors, logs and metrics.
const (
	StageDetect   = "detect"
	StageAnnotate = "annotate"
	StageDisplay  = "display"
	StagePublish  = "publish"
)

// StageError reports which stage failed on which frame.
type StageError struct {
	Stage string
	Frame uint64
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s frame %d: %v", e.Stage, e.Frame, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking stage.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
