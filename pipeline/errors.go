package pipeline

import "errors"

// Static errors for the preparation pipeline. Per-sample failures wrap one
// of these so callers can classify what went wrong without string matching.
var (
	// ErrDecode is returned when a video or audio input cannot be read.
	ErrDecode = errors.New("pipeline: decode failed")
	// ErrDetection is returned when mouth detection fails on a frame.
	ErrDetection = errors.New("pipeline: mouth detection failed")
	// ErrAlignmentUnderrun is returned when a stream is too short to
	// produce even one slice.
	ErrAlignmentUnderrun = errors.New("pipeline: stream too short for one slice")
	// ErrTransform is returned when the spectral transform fails.
	ErrTransform = errors.New("pipeline: spectral transform failed")
	// ErrInvalidParams is returned when pipeline parameters are not usable.
	ErrInvalidParams = errors.New("pipeline: invalid parameters")
	// ErrMismatchedInputs is returned when per-stream inputs disagree on
	// count or geometry.
	ErrMismatchedInputs = errors.New("pipeline: mismatched inputs")
	// ErrNoSamples is returned when a batch yields zero usable samples.
	ErrNoSamples = errors.New("pipeline: no usable samples")
)
