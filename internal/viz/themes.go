package viz

import (
	"math"

	"github.com/charmbracelet/lipgloss"
)

// Colormap maps [0, 1] onto evenly spaced color stops.
type Colormap struct {
	Name  string
	Stops []lipgloss.Color
	// Missing colors NaN cells.
	Missing lipgloss.Color
}

// Available colormaps
var (
	ColormapDiverging = Colormap{
		Name: "diverging",
		Stops: []lipgloss.Color{
			"#053061", // deep blue
			"#4393c3",
			"#f7f7f7",
			"#d6604d",
			"#67001f", // deep red
		},
		Missing: "#00ff00",
	}

	ColormapInferno = Colormap{
		Name: "inferno",
		Stops: []lipgloss.Color{
			"#000004",
			"#420a68",
			"#932667",
			"#dd513a",
			"#fca50a",
			"#fcffa4",
		},
		Missing: "#00ffff",
	}

	ColormapRetro = Colormap{
		Name:    "retro",
		Stops:   []lipgloss.Color{"#001100", "#005500", "#00cc00", "#88ff88"},
		Missing: "#ff0000",
	}

	ColormapOcean = Colormap{
		Name:    "ocean",
		Stops:   []lipgloss.Color{"#001a33", "#0077be", "#00a8cc", "#e0f0ff"},
		Missing: "#ff4444",
	}

	ColormapGray = Colormap{
		Name:    "gray",
		Stops:   []lipgloss.Color{"#000000", "#ffffff"},
		Missing: "#ff0000",
	}

	Colormaps = []Colormap{
		ColormapDiverging,
		ColormapInferno,
		ColormapRetro,
		ColormapOcean,
		ColormapGray,
	}
)

// GetColormap returns a colormap by name. An empty or unknown name picks the
// diverging map for linear plots and inferno for log plots.
func GetColormap(name string, log bool) Colormap {
	for _, c := range Colormaps {
		if c.Name == name {
			return c
		}
	}
	if log {
		return ColormapInferno
	}
	return ColormapDiverging
}

func ColormapNames() []string {
	names := make([]string, len(Colormaps))
	for i, c := range Colormaps {
		names[i] = c.Name
	}
	return names
}

// At interpolates the colormap at t in [0, 1].
func (c Colormap) At(t float64) lipgloss.Color {
	if math.IsNaN(t) {
		return c.Missing
	}
	if len(c.Stops) == 1 {
		return c.Stops[0]
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(c.Stops)-1)
	i := int(pos)
	if i >= len(c.Stops)-1 {
		return c.Stops[len(c.Stops)-1]
	}
	frac := pos - float64(i)

	sr, sg, sb := parseHex(string(c.Stops[i]))
	er, eg, eb := parseHex(string(c.Stops[i+1]))
	r := int(math.Round(float64(sr) + frac*float64(er-sr)))
	g := int(math.Round(float64(sg) + frac*float64(eg-sg)))
	b := int(math.Round(float64(sb) + frac*float64(eb-sb)))
	return lipgloss.Color(hexColor(r, g, b))
}
