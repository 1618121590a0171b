package viz

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mfilmer/SETfit/internal/grid"
)

const cell = "█"

// Levels normalizes every value of f into [0, 1] under opts. NaN cells stay NaN.
// The returned range is what the colorbar shows.
func Levels(f grid.Field, opts PlotOptions) ([][]float64, Range) {
	flat := make([]float64, 0, f.Rows()*f.Cols())
	for _, row := range f {
		flat = append(flat, row...)
	}
	r := opts.resolveRange(flat)

	out := make([][]float64, len(f))
	for i, row := range f {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = r.Normalize(opts.transform(v, r))
		}
	}
	return out, r
}

// Heatmap renders f with columns along x and rows along y. Larger y is drawn
// at the top. The field is resampled to fit opts.Width x opts.Height.
func Heatmap(f grid.Field, x, y []float64, opts PlotOptions) string {
	if f.Rows() == 0 || f.Cols() == 0 {
		return ""
	}
	xl, yl := opts.labels(defaultXLabel, defaultYLabel)
	levels, r := Levels(f, opts)
	cmap := GetColormap(opts.Palette, r.Log)

	w, h := opts.size()
	cols := min(f.Cols(), w)
	rows := min(f.Rows(), h)
	flip := len(y) < 2 || y[len(y)-1] >= y[0]

	top, bottom := axisEnds(y, flip)
	tickW := max(len(top), len(bottom))

	var b strings.Builder
	b.WriteString(AxisLabel.Render(yl) + "\n")
	for i := 0; i < rows; i++ {
		src := sample(f.Rows(), rows, i)
		if flip {
			src = f.Rows() - 1 - src
		}
		tick := ""
		switch i {
		case 0:
			tick = top
		case rows - 1:
			tick = bottom
		}
		fmt.Fprintf(&b, "%*s ┤", tickW, tick)
		for j := 0; j < cols; j++ {
			t := levels[src][sample(f.Cols(), cols, j)]
			b.WriteString(lipgloss.NewStyle().Foreground(cmap.At(t)).Render(cell))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "%*s └%s\n", tickW, "", strings.Repeat("─", cols))
	left, right := axisEnds(x, false)
	gap := max(1, cols-len(left)-len(right))
	fmt.Fprintf(&b, "%*s  %s%s%s\n", tickW, "", left, strings.Repeat(" ", gap), right)
	pad := max(0, (cols-lipgloss.Width(xl))/2)
	fmt.Fprintf(&b, "%*s  %s%s\n", tickW, "", strings.Repeat(" ", pad), AxisLabel.Render(xl))

	if opts.ColorbarDisplay {
		b.WriteByte('\n')
		b.WriteString(Colorbar(cmap, r, cols, tickW+2))
	}
	return b.String()
}

// Colorbar renders a horizontal gradient of width cells with the range ends
// underneath, indented by indent spaces.
func Colorbar(cmap Colormap, r Range, width, indent int) string {
	if width < 2 {
		width = 2
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", indent))
	for i := 0; i < width; i++ {
		t := float64(i) / float64(width-1)
		b.WriteString(lipgloss.NewStyle().Foreground(cmap.At(t)).Render(cell))
	}
	b.WriteByte('\n')

	lo, hi := formatTick(r.Lo), formatTick(r.Hi)
	if r.Log {
		lo = "log " + lo
	}
	gap := max(1, width-len(lo)-len(hi))
	b.WriteString(strings.Repeat(" ", indent) + lo + strings.Repeat(" ", gap) + hi + "\n")
	return b.String()
}

// axisEnds formats the first and last axis values, swapped when reversed.
func axisEnds(axis []float64, reversed bool) (string, string) {
	if len(axis) == 0 {
		return "", ""
	}
	first, last := formatTick(axis[0]), formatTick(axis[len(axis)-1])
	if reversed {
		return last, first
	}
	return first, last
}

func formatTick(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}
