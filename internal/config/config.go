package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mfilmer/SETfit/internal/analysis"
	"github.com/mfilmer/SETfit/internal/device"
	"github.com/mfilmer/SETfit/internal/sweep"
)

const (
	DefaultTemperature = 0.1
	DefaultVdStart     = -40.0
	DefaultVdEnd       = 40.0
	DefaultNd          = 81
	DefaultVgStart     = -80.0
	DefaultVgEnd       = 80.0
	DefaultNg          = 81
	DefaultCs          = 1e-18
	DefaultCd          = 1e-18
	DefaultCg          = 2e-18
	DefaultGs          = 1e-6
	DefaultGd          = 1e-6
	DefaultNumE        = 3
	DefaultOut         = "simData.dat"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Temperature float64       `yaml:"temperature"`
	Drain       AxisConfig    `yaml:"drain"`
	Gate        AxisConfig    `yaml:"gate"`
	Device      device.Params `yaml:"device"`
	Mode        analysis.Mode `yaml:"mode"`
	DerivGate   bool          `yaml:"dvg"`
	Out         string        `yaml:"out"`
	Plot        PlotConfig    `yaml:"plot"`
}

// AxisConfig is a uniform voltage axis in mV.
type AxisConfig struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	N     int     `yaml:"n"`
}

type PlotConfig struct {
	Enabled        bool     `yaml:"enabled"`
	GLog           *float64 `yaml:"glog,omitempty"`
	GMax           *float64 `yaml:"gmax,omitempty"`
	NegConductance bool     `yaml:"neg_conductance"`
	Colorbar       bool     `yaml:"colorbar"`
}

func DefaultConfig() *Config {
	return &Config{
		Temperature: DefaultTemperature,
		Drain:       AxisConfig{Start: DefaultVdStart, End: DefaultVdEnd, N: DefaultNd},
		Gate:        AxisConfig{Start: DefaultVgStart, End: DefaultVgEnd, N: DefaultNg},
		Device: device.Params{
			Cs:   DefaultCs,
			Cd:   DefaultCd,
			Cg:   DefaultCg,
			Gs:   DefaultGs,
			Gd:   DefaultGd,
			NumE: DefaultNumE,
		},
		Mode: analysis.Difcon,
		Out:  DefaultOut,
		Plot: PlotConfig{Colorbar: true},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %v", analysis.ErrUnknownMode, c.Mode)
	}
	if c.Temperature < 0 {
		return fmt.Errorf("%w: negative temperature %g", ErrInvalid, c.Temperature)
	}
	if c.Drain.N < 1 || c.Gate.N < 1 {
		return fmt.Errorf("%w: axes need at least one point (drain %d, gate %d)", ErrInvalid, c.Drain.N, c.Gate.N)
	}
	if c.Device.NumE < 0 {
		return fmt.Errorf("%w: num_e must not be negative", ErrInvalid)
	}
	for name, v := range map[string]float64{
		"cs": c.Device.Cs, "cd": c.Device.Cd, "cg": c.Device.Cg,
		"gs": c.Device.Gs, "gd": c.Device.Gd,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalid, name)
		}
	}
	return nil
}

// Sweep converts the file layout into an engine configuration.
func (c *Config) Sweep() sweep.Config {
	return sweep.Config{
		Temperature: c.Temperature,
		VgStart:     c.Gate.Start,
		VgEnd:       c.Gate.End,
		Ng:          c.Gate.N,
		VdStart:     c.Drain.Start,
		VdEnd:       c.Drain.End,
		Nd:          c.Drain.N,
		Device:      c.Device,
		Mode:        c.Mode,
		DerivGate:   c.DerivGate,
	}
}
