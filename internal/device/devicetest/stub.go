// Package devicetest provides scripted device models for tests.
package devicetest

import (
	"sync"

	"github.com/mfilmer/SETfit/internal/device"
)

// Stub is a Model whose observables are plain functions of the bias.
type Stub struct {
	CurrentFn    func(b device.Bias) float64
	OccupationFn func(b device.Bias) float64
	PotentialFn  func(b device.Bias) float64
	// FailAt makes Solve return Err when it returns true for the bias.
	FailAt func(b device.Bias) bool
	Err    error

	Temperature float64
	Prepared    bool
	Solves      int
	Biases      []device.Bias
	Closed      bool

	bias device.Bias
}

func (s *Stub) SetTemperature(kelvin float64) { s.Temperature = kelvin }

func (s *Stub) PreProcess() error {
	s.Prepared = true
	return nil
}

func (s *Stub) Configure(b device.Bias) error {
	if !s.Prepared {
		return device.ErrNotPrepared
	}
	s.bias = b
	s.Biases = append(s.Biases, b)
	return nil
}

func (s *Stub) Solve() error {
	s.Solves++
	if s.FailAt != nil && s.FailAt(s.bias) {
		return s.Err
	}
	return nil
}

func (s *Stub) Current(lead, node string) (float64, error) {
	return eval(s.CurrentFn, s.bias), nil
}

func (s *Stub) Occupation(node string) (float64, error) {
	return eval(s.OccupationFn, s.bias), nil
}

func (s *Stub) Potential(node string) (float64, error) {
	return eval(s.PotentialFn, s.bias), nil
}

func (s *Stub) Close() error {
	s.Closed = true
	return nil
}

func eval(fn func(device.Bias) float64, b device.Bias) float64 {
	if fn == nil {
		return 0
	}
	return fn(b)
}

// Factory records every model it builds and the gate voltage it was given.
type Factory struct {
	mu     sync.Mutex
	New    func() *Stub
	Models []*Stub
	Gates  []float64
	Params []device.Params
}

// Linear returns a factory whose models report current = Vd, occupation 0
// and potential 0.
func Linear() *Factory {
	return &Factory{New: func() *Stub {
		return &Stub{CurrentFn: func(b device.Bias) float64 { return b.Drain }}
	}}
}

func (f *Factory) Build(vg float64, p device.Params) (device.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.New()
	f.Models = append(f.Models, s)
	f.Gates = append(f.Gates, vg)
	f.Params = append(f.Params, p)
	return s, nil
}

// Calls is the number of models built so far.
func (f *Factory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Models)
}
