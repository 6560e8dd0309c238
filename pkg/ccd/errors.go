package ccd

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput means a build or calibrate call got no frames.
	ErrEmptyInput = errors.New("no frames supplied")

	// ErrUnsupportedFormat is wrapped by a LoadError when no codec handles the file.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// ShapeMismatchError says a frame does not have the dimensions of the
// frames it is being combined with.
type ShapeMismatchError struct {
	Filename string
	Want     string
	Got      string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s is %s, want %s", e.Filename, e.Got, e.Want)
}

// LoadError is an I/O or codec failure on a specific file.
type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Filename, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// CalibrationError wraps a failure in a correction step.
type CalibrationError struct {
	Filename string
	Step     string
	Err      error
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("calibrate %s, step %s: %v", e.Filename, e.Step, e.Err)
}
func (e *CalibrationError) Unwrap() error { return e.Err }

// IntegrityMismatchError reports that pixel data no longer matches its
// stored digest. It is only ever returned by verification.
type IntegrityMismatchError struct {
	Filename   string
	Stored     string
	Recomputed string
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("integrity mismatch in %s: stored %s, recomputed %s", e.Filename, e.Stored, e.Recomputed)
}
