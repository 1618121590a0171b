package viz

import (
	"math"
	"strings"

	"github.com/mfilmer/SETfit/internal/grid"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
	return c
}

// Set sets a pixel at (x, y) in sub-pixel coordinates; the canvas is
// (Width*2) x (Height*4) sub-pixels.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Mask draws a dot wherever |f| exceeds threshold. The highest row of the field
// is drawn at the top. Inside a Coulomb diamond the current vanishes, so the
// diamonds show up as empty regions.
func Mask(f grid.Field, threshold float64, w, h int) string {
	rows, cols := f.Rows(), f.Cols()
	if rows == 0 || cols == 0 || w <= 0 || h <= 0 {
		return ""
	}
	if w*2 > cols {
		w = (cols + 1) / 2
	}
	if h*4 > rows {
		h = (rows + 3) / 4
	}
	c := NewCanvas(w, h)
	px, py := w*2, h*4
	for y := 0; y < py; y++ {
		r := sample(rows, py, py-1-y)
		for x := 0; x < px; x++ {
			v := f[r][sample(cols, px, x)]
			if math.Abs(v) > threshold {
				c.Set(x, y)
			}
		}
	}
	return c.String()
}

// sample picks the source index for output position i of n when shrinking or
// stretching src samples.
func sample(src, n, i int) int {
	if n <= 1 || src <= 1 {
		return 0
	}
	k := int(math.Round(float64(i) * float64(src-1) / float64(n-1)))
	if k >= src {
		k = src - 1
	}
	return k
}
