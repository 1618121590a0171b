package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mfilmer/SETfit/internal/grid"
)

var approx = cmp.Options{cmpopts.EquateApprox(0, 1e-12), cmpopts.EquateNaNs()}

func TestLevelsLinearIsSymmetric(t *testing.T) {
	f := grid.Field{
		{-2, 0},
		{1, 2},
	}
	levels, r := Levels(f, PlotOptions{})

	want := [][]float64{
		{0, 0.5},
		{0.75, 1},
	}
	if diff := cmp.Diff(want, levels, approx); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
	if r.Lo != -2 || r.Hi != 2 || r.Log {
		t.Errorf("unexpected range %+v", r)
	}
}

func TestLevelsGMaxClamps(t *testing.T) {
	f := grid.Field{{-10, 0.5, 10}}
	levels, _ := Levels(f, PlotOptions{GMax: Float(1)})

	want := [][]float64{{0, 0.75, 1}}
	if diff := cmp.Diff(want, levels, approx); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestLevelsLogWithNegConductance(t *testing.T) {
	f := grid.Field{{-100, 1e-6, 10, math.NaN()}}
	levels, r := Levels(f, PlotOptions{
		GLog:           Float(1e-3),
		GMax:           Float(1e3),
		NegConductance: true,
	})

	// log10 range [-3, 3]: |-100| -> 2, 1e-6 clamps to the floor, 10 -> 1
	want := [][]float64{{5.0 / 6.0, 0, 4.0 / 6.0, math.NaN()}}
	if diff := cmp.Diff(want, levels, approx); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
	if !r.Log || r.Lo != 1e-3 || r.Hi != 1e3 {
		t.Errorf("unexpected range %+v", r)
	}
}

func TestGMaxTakenBeforeAbs(t *testing.T) {
	// the data maximum is 1 even though |-4| is larger
	r := PlotOptions{NegConductance: true}.resolveRange([]float64{-4, 1, math.Inf(1)})
	if r.Hi != 1 || r.Lo != -1 {
		t.Errorf("unexpected range %+v", r)
	}
}

func TestColormapEndsAndMissing(t *testing.T) {
	c := ColormapGray
	if got := c.At(0); got != lipgloss.Color("#000000") {
		t.Errorf("At(0) = %s", got)
	}
	if got := c.At(1); got != lipgloss.Color("#ffffff") {
		t.Errorf("At(1) = %s", got)
	}
	if got := c.At(0.5); got != lipgloss.Color("#808080") {
		t.Errorf("At(0.5) = %s", got)
	}
	if got := c.At(math.NaN()); got != c.Missing {
		t.Errorf("At(NaN) = %s", got)
	}
	if got := c.At(7); got != lipgloss.Color("#ffffff") {
		t.Errorf("At(7) = %s", got)
	}
}

func TestGetColormap(t *testing.T) {
	if GetColormap("ocean", false).Name != "ocean" {
		t.Error("expected ocean")
	}
	if GetColormap("", false).Name != "diverging" {
		t.Error("linear default should be diverging")
	}
	if GetColormap("nope", true).Name != "inferno" {
		t.Error("log default should be inferno")
	}
	if len(ColormapNames()) != len(Colormaps) {
		t.Error("names out of sync")
	}
}

func TestHeatmapLayout(t *testing.T) {
	f := grid.Field{
		{1, 2, 3},
		{4, 5, 6},
	}
	out := Heatmap(f, []float64{-80, 0, 80}, []float64{-40, 40}, PlotOptions{ColorbarDisplay: true})

	for _, want := range []string{"Vg (mV)", "Vd (mV)", "-80", "80", "-40", "40", "-6", "6"} {
		if !strings.Contains(out, want) {
			t.Errorf("heatmap missing %q:\n%s", want, out)
		}
	}
	lines := strings.Split(out, "\n")
	// y label, two field rows with the top row at the larger Vd
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "40") {
		t.Errorf("top row should be labelled 40, got %q", lines[1])
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[2]), "-40") {
		t.Errorf("bottom row should be labelled -40, got %q", lines[2])
	}
	if n := strings.Count(lines[1], cell); n != 3 {
		t.Errorf("expected 3 cells per row, got %d", n)
	}
}

func TestHeatmapResamplesAndLabels(t *testing.T) {
	f := make(grid.Field, 50)
	for i := range f {
		f[i] = make([]float64, 200)
	}
	out := Heatmap(f, grid.Linspace(0, 1, 200), grid.Linspace(0, 1, 50), PlotOptions{
		Width: 20, Height: 10, XLabel: "gate", YLabel: "bias",
	})
	lines := strings.Split(out, "\n")
	if !strings.Contains(lines[0], "bias") || !strings.Contains(out, "gate") {
		t.Errorf("custom labels missing:\n%s", out)
	}
	if n := strings.Count(lines[1], cell); n != 20 {
		t.Errorf("expected 20 cells, got %d", n)
	}
	rows := 0
	for _, l := range lines {
		if strings.Contains(l, "┤") {
			rows++
		}
	}
	if rows != 10 {
		t.Errorf("expected 10 rows, got %d", rows)
	}
}

func TestHeatmapEmpty(t *testing.T) {
	if Heatmap(nil, nil, nil, PlotOptions{}) != "" {
		t.Error("empty field should render nothing")
	}
}

func TestLine(t *testing.T) {
	x := grid.Linspace(0, 10, 11)
	y := make([]float64, len(x))
	for i := range x {
		y[i] = x[i] * x[i]
	}
	out := Line(x, y, PlotOptions{XLabel: "Vg (mV)", YLabel: "I (A)"})
	if !strings.Contains(out, "I (A) vs Vg (mV) [0 .. 10]") {
		t.Errorf("caption missing:\n%s", out)
	}

	out = Line(x, y, PlotOptions{GLog: Float(1), GMax: Float(100)})
	if !strings.Contains(out, "log10 y vs x") {
		t.Errorf("log caption missing:\n%s", out)
	}
}

func TestLineWithoutFiniteData(t *testing.T) {
	out := Line([]float64{0, 1}, []float64{math.NaN(), math.Inf(1)}, PlotOptions{})
	if !strings.Contains(out, "no finite data") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestMask(t *testing.T) {
	// right half conducts
	f := grid.Field{
		{0, 0, 1, 1},
		{0, 0, 1, 1},
		{0, 0, 1, 1},
		{0, 0, 1, 1},
	}
	got := Mask(f, 0.5, 2, 1)
	want := string([]rune{0x2800, 0x2800 | 0xff}) + "\n"
	if got != want {
		t.Errorf("Mask = %q, want %q", got, want)
	}
	if Mask(grid.Field{}, 0, 4, 4) != "" {
		t.Error("empty field should render nothing")
	}
}

func TestProgressBarBounds(t *testing.T) {
	if n := strings.Count(ProgressBar(2, 10), "█"); n != 10 {
		t.Errorf("expected full bar, got %d cells", n)
	}
	if n := strings.Count(ProgressBar(-1, 10), "░"); n != 10 {
		t.Errorf("expected empty bar, got %d cells", n)
	}
}

func TestSparklineSkipsNaN(t *testing.T) {
	out := SparklineChart([]float64{0, math.NaN(), 1}, 3)
	if !strings.Contains(out, "·") || !strings.Contains(out, "▁") || !strings.Contains(out, "█") {
		t.Errorf("unexpected sparkline %q", out)
	}
}

func TestColorbarLabels(t *testing.T) {
	out := Colorbar(ColormapGray, Range{Lo: -3, Hi: 1, Log: true}, 20, 2)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "  log -3 ") || !strings.HasSuffix(last, " 1") {
		t.Errorf("log labels = %q, want \"log -3\" on the left and \"1\" on the right", last)
	}
	if strings.Count(last, "log") != 1 {
		t.Errorf("log marker repeated in %q", last)
	}

	out = Colorbar(ColormapGray, Range{Lo: -2, Hi: 2}, 20, 0)
	if strings.Contains(out, "log") {
		t.Errorf("linear colorbar labelled log:\n%s", out)
	}
}
