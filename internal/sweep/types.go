package sweep

import (
	"errors"
	"fmt"

	"github.com/mfilmer/SETfit/internal/analysis"
	"github.com/mfilmer/SETfit/internal/device"
	"github.com/mfilmer/SETfit/internal/grid"
)

// Config describes one diamond sweep. Voltages are in mV, temperature in K.
type Config struct {
	Temperature float64
	VgStart     float64
	VgEnd       float64
	Ng          int
	VdStart     float64
	VdEnd       float64
	Nd          int
	Device      device.Params
	Mode        analysis.Mode
	// DerivGate differentiates the assembled field along the gate axis.
	DerivGate bool
}

// Result is a diamond map. Field rows follow Y (drain axis, possibly shortened
// by the mode), columns follow X (gate axis, shortened by DerivGate).
type Result struct {
	Field grid.Field
	X     []float64
	Y     []float64
}

// GateSweepConfig describes a 1D sweep of the gate at fixed drain bias.
type GateSweepConfig struct {
	Temperature float64
	VgStart     float64
	VgEnd       float64
	Ng          int
	Vd          float64
	// AppendTo, when set, receives one "vg I P" line per gate point.
	AppendTo string
}

// GateSweepResult holds the gate axis, drain current and dot occupation.
type GateSweepResult struct {
	Vg []float64
	I  []float64
	P  []float64
}

// Observer is notified after each gate column of a diamond sweep.
type Observer interface {
	OnColumn(index, total int, vg float64, column []float64)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(index, total int, vg float64, column []float64)

func (f ObserverFunc) OnColumn(index, total int, vg float64, column []float64) {
	f(index, total, vg, column)
}

var ErrInvalidConfig = errors.New("sweep: invalid config")

// Validate reports configuration errors before any device work.
func (c Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %v", analysis.ErrUnknownMode, c.Mode)
	}
	if c.Ng < 1 {
		return fmt.Errorf("%w: Ng must be at least 1, got %d", ErrInvalidConfig, c.Ng)
	}
	if c.Nd < 1 {
		return fmt.Errorf("%w: Nd must be at least 1, got %d", ErrInvalidConfig, c.Nd)
	}
	return nil
}

func (c GateSweepConfig) Validate() error {
	if c.Ng < 1 {
		return fmt.Errorf("%w: Ng must be at least 1, got %d", ErrInvalidConfig, c.Ng)
	}
	return nil
}
