package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mfilmer/SETfit/internal/grid"
	"github.com/mfilmer/SETfit/internal/viz"
)

const (
	width       = 70
	height      = 12
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer prints sweep progress to a terminal without taking it over.
// It implements sweep.Observer.
type LiveRenderer struct {
	out       io.Writer
	label     string
	frameRate int
	lastFrame time.Time
	started   time.Time
	columns   [][]float64
	received  int
	frames    int
}

func NewLiveRenderer(out io.Writer, label string, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 10
	}
	return &LiveRenderer{
		out:       out,
		label:     label,
		frameRate: frameRate,
	}
}

func (r *LiveRenderer) OnColumn(index, total int, vg float64, column []float64) {
	if r.columns == nil || len(r.columns) != total {
		r.columns = make([][]float64, total)
		r.received = 0
	}
	if r.columns[index] == nil {
		r.received++
	}
	r.columns[index] = column

	last := r.received == total
	if !last && time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()
	r.render(vg, total)
}

func (r *LiveRenderer) field() grid.Field {
	n := 0
	for _, col := range r.columns {
		if col != nil {
			n = len(col)
			break
		}
	}
	cols := grid.NewColumns(len(r.columns))
	for i, col := range r.columns {
		if col == nil {
			col = make([]float64, n)
		}
		_ = cols.Set(i, col)
	}
	f, err := cols.Transpose()
	if err != nil {
		return nil
	}
	return f
}

func (r *LiveRenderer) render(vg float64, total int) {
	var b strings.Builder
	b.WriteString(clearScreen)
	frac := float64(r.received) / float64(total)
	spin := viz.AnimatedSpinner(r.frames)
	if r.received == total {
		spin = "✓"
	}
	r.frames++
	fmt.Fprintf(&b, "%s %s  Vg=%.4g mV  %d/%d  %s\n", spin, r.label, vg, r.received, total,
		time.Since(r.started).Round(time.Second))
	b.WriteString("  " + viz.ProgressBar(frac, width-10) + "\n")
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	f := r.field()
	for _, line := range strings.Split(strings.TrimRight(viz.Mask(f, threshold(f), width/2, height), "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() {
	r.started = time.Now()
	fmt.Fprint(r.out, hideCursor)
}

func (r *LiveRenderer) Stop() { fmt.Fprint(r.out, showCursor) }
