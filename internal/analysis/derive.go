package analysis

import (
	"fmt"
	"math"

	"github.com/mfilmer/SETfit/internal/grid"
)

// Derive returns the forward first difference of f sampled on the uniform axis
// x, divided by |x[1]-x[0]|, together with a len(x)-1 point axis spanning
// [x[0], x[len(x)-1]].
//
// The returned axis is a plain linspace over the original end points, not the
// interval midpoints. Saved maps depend on this layout.
func Derive(f, x []float64) ([]float64, []float64, error) {
	if len(f) != len(x) {
		return nil, nil, fmt.Errorf("%w: %d values on %d points", ErrLengthMismatch, len(f), len(x))
	}
	if len(x) < 2 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(x))
	}

	h := math.Abs(x[1] - x[0])
	df := make([]float64, len(f)-1)
	for i := range df {
		df[i] = (f[i+1] - f[i]) / h
	}

	return df, grid.Linspace(x[0], x[len(x)-1], len(x)-1), nil
}

func scale(v []float64, factor float64) {
	for i := range v {
		v[i] *= factor
	}
}
