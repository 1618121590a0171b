package device

import (
	"errors"
	"fmt"
)

// Node and electrode names of the single-dot transistor.
const (
	Dot    = "dot"
	Source = "source"
	Drain  = "drain"
	Gate   = "gate"
)

// Bias is the voltage vector applied to source, drain and gate, in mV.
type Bias struct {
	Source float64
	Drain  float64
	Gate   float64
}

func (b Bias) Vector() []float64 { return []float64{b.Source, b.Drain, b.Gate} }

// Params is the device topology handed to a Factory. Capacitances are in F,
// conductances in S.
type Params struct {
	Cs   float64 `yaml:"cs"`
	Cd   float64 `yaml:"cd"`
	Cg   float64 `yaml:"cg"`
	Gs   float64 `yaml:"gs"`
	Gd   float64 `yaml:"gd"`
	NumE int     `yaml:"num_e"`
}

// Model is a steady-state solver for one device instance. PreProcess runs
// once after construction and temperature setup, before any Configure/Solve.
type Model interface {
	SetTemperature(kelvin float64)
	PreProcess() error
	Configure(b Bias) error
	Solve() error
	Current(lead, node string) (float64, error)
	Occupation(node string) (float64, error)
	Potential(node string) (float64, error)
}

// Factory builds a fresh Model for gate voltage vg.
type Factory func(vg float64, p Params) (Model, error)

var (
	ErrNotPrepared  = errors.New("device: model used before PreProcess")
	ErrUnknownNode  = errors.New("device: unknown node")
	ErrSingular     = errors.New("device: singular rate matrix")
	ErrInvalidParam = errors.New("device: invalid parameter")
)

// Error reports a model failure at a specific bias point.
type Error struct {
	Op   string
	Bias Bias
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("device %s at Vd=%g Vg=%g: %v", e.Op, e.Bias.Drain, e.Bias.Gate, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
