package analysis

import "errors"

var (
	// ErrTooFewPoints indicates a derivative over fewer than two samples.
	ErrTooFewPoints = errors.New("analysis: derivative needs at least two points")

	// ErrLengthMismatch indicates series and axis of different lengths.
	ErrLengthMismatch = errors.New("analysis: series and axis lengths differ")

	// ErrUnknownMode indicates a mode tag outside the mode table.
	ErrUnknownMode = errors.New("analysis: unknown mode")
)
