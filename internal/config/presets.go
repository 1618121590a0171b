package config

import (
	"sort"

	"github.com/mfilmer/SETfit/internal/analysis"
	"github.com/mfilmer/SETfit/internal/device"
)

// Presets groups ready-made sweeps by family. Families describe the regime the
// sweep is meant to show; names pick a device inside it.
var Presets = map[string]map[string]*Config{
	"diamond": {
		"symmetric": preset(func(c *Config) {}),
		"asymmetric": preset(func(c *Config) {
			c.Device.Cs, c.Device.Cd = 0.5e-18, 1.5e-18
			c.Device.Gs, c.Device.Gd = 5e-7, 2e-6
		}),
		"weak_gate": preset(func(c *Config) {
			c.Device.Cg = 0.5e-18
			c.Gate = AxisConfig{Start: -320, End: 320, N: 81}
		}),
	},
	"zoom": {
		"degeneracy": preset(func(c *Config) {
			c.Gate = AxisConfig{Start: 20, End: 60, N: 81}
			c.Drain = AxisConfig{Start: -10, End: 10, N: 81}
		}),
		"blockade_edge": preset(func(c *Config) {
			c.Mode = analysis.Current
			c.Gate = AxisConfig{Start: -20, End: 20, N: 41}
			c.Drain = AxisConfig{Start: 10, End: 30, N: 81}
		}),
	},
	"thermal": {
		"kelvin": preset(func(c *Config) { c.Temperature = 1 }),
		"helium": preset(func(c *Config) { c.Temperature = 4.2 }),
		"francis": preset(func(c *Config) {
			c.Temperature = 1
			c.Mode = analysis.Francis
		}),
	},
}

func preset(edit func(*Config)) *Config {
	c := DefaultConfig()
	c.Drain.N, c.Gate.N = 61, 61
	c.Device = device.Params{
		Cs: DefaultCs, Cd: DefaultCd, Cg: DefaultCg,
		Gs: DefaultGs, Gd: DefaultGd, NumE: DefaultNumE,
	}
	edit(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(family, name string) *Config {
	familyPresets, ok := Presets[family]
	if !ok {
		return nil
	}
	cfg, ok := familyPresets[name]
	if !ok {
		return nil
	}
	c := *cfg
	c.Plot = clonePlot(cfg.Plot)
	return &c
}

func ListPresets(family string) []string {
	familyPresets, ok := Presets[family]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(familyPresets))
	for name := range familyPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Families() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clonePlot(p PlotConfig) PlotConfig {
	if p.GLog != nil {
		v := *p.GLog
		p.GLog = &v
	}
	if p.GMax != nil {
		v := *p.GMax
		p.GMax = &v
	}
	return p
}
