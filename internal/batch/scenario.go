// Package batch runs scripted sequences of sweeps described in YAML.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mfilmer/SETfit/internal/config"
)

var ErrInvalidScenario = errors.New("batch: invalid scenario")

// Scenario defines a scripted sequence of sweeps.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`

	dir string
}

type Kind string

const (
	KindDiamond   Kind = "diamond"
	KindGateSweep Kind = "ivg"
)

// Step is a single sweep. Config is decoded on top of the preset, or on top
// of the defaults when no preset is named.
type Step struct {
	Name   string    `yaml:"name"`
	Kind   Kind      `yaml:"kind"`
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
	// Vd is the fixed drain bias of a gate sweep, in mV.
	Vd     float64 `yaml:"vd"`
	Vary   *Vary   `yaml:"vary"`
	Out    string  `yaml:"out"`
	Append bool    `yaml:"append"`
}

// Vary repeats a step over a uniform range of one parameter.
type Vary struct {
	Param string  `yaml:"param"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	N     int     `yaml:"n"`
}

var setters = map[string]func(*config.Config, float64){
	"temperature": func(c *config.Config, v float64) { c.Temperature = v },
	"cs":          func(c *config.Config, v float64) { c.Device.Cs = v },
	"cd":          func(c *config.Config, v float64) { c.Device.Cd = v },
	"cg":          func(c *config.Config, v float64) { c.Device.Cg = v },
	"gs":          func(c *config.Config, v float64) { c.Device.Gs = v },
	"gd":          func(c *config.Config, v float64) { c.Device.Gd = v },
	"vd":          nil,
}

// VaryParams lists the parameters a step can vary.
func VaryParams() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadScenario loads a scenario from a YAML file. Relative output paths are
// resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	scenario.dir = filepath.Dir(path)

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	for i := range s.Steps {
		step := &s.Steps[i]
		if _, err := step.Resolve(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.label(i), err)
		}
	}
	return nil
}

func (st *Step) label(i int) string {
	if st.Name != "" {
		return st.Name
	}
	return fmt.Sprintf("step%d", i+1)
}

func (st *Step) kind() Kind {
	if st.Kind == "" {
		return KindDiamond
	}
	return st.Kind
}

// Resolve builds the step's sweep configuration.
func (st *Step) Resolve() (*config.Config, error) {
	switch st.kind() {
	case KindDiamond, KindGateSweep:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidScenario, st.Kind)
	}

	cfg := config.DefaultConfig()
	if st.Preset != "" {
		family, name, _ := strings.Cut(st.Preset, "/")
		cfg = config.GetPreset(family, name)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidScenario, st.Preset)
		}
	}
	if !st.Config.IsZero() {
		if err := st.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decoding config: %w", err)
		}
	}
	if st.Out != "" {
		cfg.Out = st.Out
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if st.Vary != nil {
		if _, ok := setters[st.Vary.Param]; !ok {
			return nil, fmt.Errorf("%w: cannot vary %q (valid: %s)",
				ErrInvalidScenario, st.Vary.Param, strings.Join(VaryParams(), ", "))
		}
		if st.Vary.Param == "vd" && st.kind() != KindGateSweep {
			return nil, fmt.Errorf("%w: vd can only be varied in a gate sweep", ErrInvalidScenario)
		}
		if st.Vary.N < 1 {
			return nil, fmt.Errorf("%w: vary needs at least one value", ErrInvalidScenario)
		}
	}
	return cfg, nil
}

// outPath numbers the output of the i-th varied run: data.dat -> data_002.dat.
func outPath(base string, i int) string {
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_%03d%s", strings.TrimSuffix(base, ext), i, ext)
}
