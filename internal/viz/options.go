package viz

import "math"

const (
	DefaultWidth  = 60
	DefaultHeight = 24

	defaultXLabel = "Vg (mV)"
	defaultYLabel = "Vd (mV)"
)

// PlotOptions is passed by value; the zero value plots linearly with the
// field maximum as range.
type PlotOptions struct {
	// GLog is the log floor. Nil plots on a linear scale.
	GLog *float64
	// GMax is the upper end of the color range. Nil uses the data maximum.
	GMax           *float64
	NegConductance bool
	XLabel         string
	YLabel         string
	// ColorbarDisplay appends a colorbar below the heatmap.
	ColorbarDisplay bool
	// Width and Height bound the plot size in cells; zero picks the defaults.
	Width   int
	Height  int
	Palette string
}

// Float returns a pointer to v, for GLog and GMax.
func Float(v float64) *float64 { return &v }

func (o PlotOptions) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

func (o PlotOptions) labels(x, y string) (string, string) {
	if o.XLabel != "" {
		x = o.XLabel
	}
	if o.YLabel != "" {
		y = o.YLabel
	}
	return x, y
}

// Range is the resolved color or value range of a plot.
type Range struct {
	Lo, Hi float64
	Log    bool
}

// resolveRange picks gmax from the raw data before NegConductance is applied.
func (o PlotOptions) resolveRange(values []float64) Range {
	gmax := math.Inf(-1)
	if o.GMax != nil {
		gmax = *o.GMax
	} else {
		for _, v := range values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) && v > gmax {
				gmax = v
			}
		}
		if math.IsInf(gmax, -1) {
			gmax = 1
		}
	}
	if o.GLog != nil {
		return Range{Lo: *o.GLog, Hi: gmax, Log: true}
	}
	return Range{Lo: -gmax, Hi: gmax}
}

// transform applies NegConductance and the log floor to one value.
func (o PlotOptions) transform(v float64, r Range) float64 {
	if o.NegConductance {
		v = math.Abs(v)
	}
	if r.Log {
		if v < r.Lo {
			v = r.Lo
		}
		return math.Log10(v)
	}
	return v
}

// Normalize maps v into [0, 1] on r, clamping outside values. NaN stays NaN.
func (r Range) Normalize(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	lo, hi := r.Lo, r.Hi
	if r.Log {
		lo, hi = math.Log10(lo), math.Log10(hi)
	}
	if hi == lo || math.IsNaN(hi-lo) {
		return 0.5
	}
	t := (v - lo) / (hi - lo)
	return math.Max(0, math.Min(1, t))
}
