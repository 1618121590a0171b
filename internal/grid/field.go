package grid

import (
	"fmt"
	"math"
)

// Field is a row-major 2D array indexed [row][column]. For a diamond map rows
// follow the drain axis and columns the gate axis.
type Field [][]float64

func (f Field) Rows() int { return len(f) }

func (f Field) Cols() int {
	if len(f) == 0 {
		return 0
	}
	return len(f[0])
}

// Max returns the largest finite value, or NaN when the field holds none.
func (f Field) Max() float64 {
	m := math.NaN()
	for _, row := range f {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if math.IsNaN(m) || v > m {
				m = v
			}
		}
	}
	return m
}

// Min returns the smallest finite value, or NaN when the field holds none.
func (f Field) Min() float64 {
	m := math.NaN()
	for _, row := range f {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if math.IsNaN(m) || v < m {
				m = v
			}
		}
	}
	return m
}

// Columns collects a field column by column. Every outer index owns its slot
// up front, so writes never interleave.
type Columns struct {
	cols   [][]float64
	filled []bool
}

func NewColumns(n int) *Columns {
	return &Columns{
		cols:   make([][]float64, n),
		filled: make([]bool, n),
	}
}

func (c *Columns) Len() int { return len(c.cols) }

// Set stores col in slot i.
func (c *Columns) Set(i int, col []float64) error {
	if i < 0 || i >= len(c.cols) {
		return fmt.Errorf("%w: %d of %d", ErrColumnIndex, i, len(c.cols))
	}
	c.cols[i] = col
	c.filled[i] = true
	return nil
}

// Transpose turns the collected columns into a row-major Field.
func (c *Columns) Transpose() (Field, error) {
	if len(c.cols) == 0 {
		return Field{}, nil
	}
	for i, ok := range c.filled {
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrMissingColumn, i)
		}
	}

	rows := len(c.cols[0])
	for i, col := range c.cols {
		if len(col) != rows {
			return nil, fmt.Errorf("%w: column %d has %d rows, want %d", ErrRaggedField, i, len(col), rows)
		}
	}

	out := make(Field, rows)
	for r := range out {
		out[r] = make([]float64, len(c.cols))
		for j, col := range c.cols {
			out[r][j] = col[r]
		}
	}
	return out, nil
}
