package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
)

// Line plots y against x. Log plots are drawn on log10 between the floor and
// gmax; linear plots fit the data.
func Line(x, y []float64, opts PlotOptions) string {
	xl, yl := opts.labels("x", "y")
	r := opts.resolveRange(y)

	data := make([]float64, len(y))
	finite := 0
	for i, v := range y {
		t := opts.transform(v, r)
		if math.IsInf(t, 0) {
			t = math.NaN()
		}
		if !math.IsNaN(t) {
			finite++
		}
		data[i] = t
	}

	caption := yl + " vs " + xl
	if len(x) > 0 {
		caption += fmt.Sprintf(" [%s .. %s]", formatTick(x[0]), formatTick(x[len(x)-1]))
	}
	if finite == 0 {
		return caption + ": no finite data\n"
	}

	w, h := opts.size()
	plotOpts := []asciigraph.Option{
		asciigraph.Height(h / 2),
		asciigraph.Width(w),
		asciigraph.Caption(caption),
	}
	if r.Log {
		caption = "log10 " + caption
		plotOpts = append(plotOpts,
			asciigraph.Caption(caption),
			asciigraph.LowerBound(math.Log10(r.Lo)),
			asciigraph.UpperBound(math.Log10(r.Hi)),
		)
	}
	return asciigraph.Plot(data, plotOpts...) + "\n"
}
