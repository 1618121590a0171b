// Package export renders diamond maps and gate traces as standalone SVG files.
package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/mfilmer/SETfit/internal/grid"
	"github.com/mfilmer/SETfit/internal/viz"
)

const background = "#0a0a0a"

// HeatmapSVG draws one rect per field cell, colored like viz.Heatmap. The
// largest y value ends up on the top row. scale is the cell size in pixels.
func HeatmapSVG(f grid.Field, y []float64, opts viz.PlotOptions, scale float64) string {
	if f.Rows() == 0 || f.Cols() == 0 {
		return ""
	}
	if scale <= 0 {
		scale = 8
	}
	levels, r := viz.Levels(f, opts)
	cmap := viz.GetColormap(opts.Palette, r.Log)
	flip := len(y) < 2 || y[len(y)-1] >= y[0]

	width := float64(f.Cols()) * scale
	height := float64(f.Rows()) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f" shape-rendering="crispEdges">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	for i := range levels {
		src := i
		if flip {
			src = len(levels) - 1 - i
		}
		for j, t := range levels[src] {
			fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, float64(j)*scale, float64(i)*scale, scale, scale, cmap.At(t))
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// TraceSVG draws y against x as one polyline. Non-finite points break the
// line. Returns "" when fewer than two points are finite.
func TraceSVG(x, y []float64, width, height int, stroke string) string {
	n := min(len(x), len(y))
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	finite := 0
	for k := 0; k < n; k++ {
		if !usable(x[k]) || !usable(y[k]) {
			continue
		}
		finite++
		minX, maxX = math.Min(minX, x[k]), math.Max(maxX, x[k])
		minY, maxY = math.Min(minY, y[k]), math.Max(maxY, y[k])
	}
	if finite < 2 {
		return ""
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="`,
		width, height, width, height, background, stroke)

	move := true
	for k := 0; k < n; k++ {
		if !usable(x[k]) || !usable(y[k]) {
			move = true
			continue
		}
		px := (x[k] - minX) / rangeX * float64(width)
		py := float64(height) - (y[k]-minY)/rangeY*float64(height)
		cmd := "L"
		if move {
			cmd = "M"
			move = false
		}
		fmt.Fprintf(&sb, "%s%.1f,%.1f ", cmd, px, py)
	}

	sb.WriteString(`"/>
</svg>
`)
	return sb.String()
}

// WriteFile writes an SVG document, replacing path.
func WriteFile(path, svg string) error {
	if svg == "" {
		return fmt.Errorf("export %s: nothing to draw", path)
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

func usable(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
