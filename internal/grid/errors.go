package grid

import "errors"

var (
	// ErrRaggedField indicates columns of different lengths at transpose time.
	ErrRaggedField = errors.New("grid: columns have different lengths")

	// ErrMissingColumn indicates a column slot that was never written.
	ErrMissingColumn = errors.New("grid: column slot not filled")

	// ErrColumnIndex indicates a write outside the allocated column slots.
	ErrColumnIndex = errors.New("grid: column index out of range")
)
