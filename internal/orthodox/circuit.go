// Package orthodox solves the steady state of a single metallic dot coupled to
// leads and gates in the orthodox model of single electron tunneling.
//
// Units: voltages in mV, capacitances in F, conductances in S, temperature in
// K, currents in A.
package orthodox

import (
	"fmt"

	"github.com/edp1096/sparse"

	"github.com/mfilmer/SETfit/internal/device"
)

const (
	electronCharge = 1.602176634e-19
	boltzmann      = 1.380649e-23
	milli          = 1e-3
)

type electrode struct {
	name string
	lead bool
}

type link struct {
	electrode int
	c         float64
	g         float64
}

type dot struct {
	name   string
	nMin   int
	nMax   int
	offset float64
}

// Circuit is one SET instance. Build the topology, then SetTemperature,
// PreProcess, and Configure/Solve for each bias point.
type Circuit struct {
	dot        *dot
	electrodes []electrode
	links      []link
	kelvin     float64

	cSum     float64
	prepared bool
	bias     []float64

	up, down [][]float64 // [link][state] rates in 1/s
	probs    []float64

	matrix *sparse.Matrix
	slots  rateSlots
}

// rateSlots are the matrix elements Solve writes. They are fetched once in
// PreProcess: the matrix is reordered by its first Factor and accepts no new
// lookups afterwards.
type rateSlots struct {
	diag  []*sparse.Element // (k+1, k+1), balance rows only
	below []*sparse.Element // (k+1, k), nil for k == 0
	above []*sparse.Element // (k+1, k+2)
	norm  []*sparse.Element // (states, k+1)
}

var _ device.Model = (*Circuit)(nil)

func New() *Circuit {
	return &Circuit{}
}

// AddMetallicDot adds the island with allowed extra electron numbers
// nMin..nMax and a background charge offset in units of e.
func (c *Circuit) AddMetallicDot(name string, nMax, nMin int, offset float64) error {
	if c.dot != nil {
		return fmt.Errorf("%w: only one dot supported, have %q", device.ErrInvalidParam, c.dot.name)
	}
	if nMin > nMax {
		return fmt.Errorf("%w: charge range [%d, %d]", device.ErrInvalidParam, nMin, nMax)
	}
	c.dot = &dot{name: name, nMin: nMin, nMax: nMax, offset: offset}
	c.prepared = false
	return nil
}

// AddLead adds a tunneling electrode.
func (c *Circuit) AddLead(name string) error {
	return c.addElectrode(name, true)
}

// AddGate adds a capacitive-only electrode.
func (c *Circuit) AddGate(name string) error {
	return c.addElectrode(name, false)
}

func (c *Circuit) addElectrode(name string, lead bool) error {
	if _, ok := c.electrodeIndex(name); ok {
		return fmt.Errorf("%w: duplicate electrode %q", device.ErrInvalidParam, name)
	}
	c.electrodes = append(c.electrodes, electrode{name: name, lead: lead})
	c.bias = append(c.bias, 0)
	c.prepared = false
	return nil
}

// AddLink couples the dot to an electrode through capacitance and, for
// leads, tunnel conductance g. Gate links must have g == 0.
func (c *Circuit) AddLink(dotName, electrodeName string, capacitance, g float64) error {
	if c.dot == nil || c.dot.name != dotName {
		return fmt.Errorf("%w: %q", device.ErrUnknownNode, dotName)
	}
	idx, ok := c.electrodeIndex(electrodeName)
	if !ok {
		return fmt.Errorf("%w: %q", device.ErrUnknownNode, electrodeName)
	}
	if capacitance < 0 || g < 0 {
		return fmt.Errorf("%w: negative C or G on %s-%s", device.ErrInvalidParam, dotName, electrodeName)
	}
	if !c.electrodes[idx].lead && g != 0 {
		return fmt.Errorf("%w: gate %q cannot tunnel", device.ErrInvalidParam, electrodeName)
	}
	c.links = append(c.links, link{electrode: idx, c: capacitance, g: g})
	c.prepared = false
	return nil
}

func (c *Circuit) SetTemperature(kelvin float64) {
	c.kelvin = kelvin
}

// PreProcess validates the topology and allocates the rate matrix.
func (c *Circuit) PreProcess() error {
	if c.dot == nil {
		return fmt.Errorf("%w: no dot", device.ErrInvalidParam)
	}
	if c.kelvin < 0 {
		return fmt.Errorf("%w: temperature %g K", device.ErrInvalidParam, c.kelvin)
	}

	c.cSum = 0
	for _, l := range c.links {
		c.cSum += l.c
	}
	if c.cSum <= 0 {
		return fmt.Errorf("%w: total capacitance must be positive", device.ErrInvalidParam)
	}

	states := c.states()
	if c.matrix != nil {
		c.matrix.Destroy()
	}
	mat, err := sparse.Create(int64(states), &sparse.Configuration{
		Real:           true,
		Complex:        false,
		Expandable:     true,
		Translate:      false,
		ModifiedNodal:  false,
		TiesMultiplier: 5,
		PrinterWidth:   140,
		Annotate:       0,
	})
	if err != nil {
		return fmt.Errorf("creating rate matrix: %w", err)
	}
	c.matrix = mat
	c.slots = newRateSlots(mat, states)

	c.up = make([][]float64, len(c.links))
	c.down = make([][]float64, len(c.links))
	for i := range c.links {
		c.up[i] = make([]float64, states)
		c.down[i] = make([]float64, states)
	}
	c.probs = nil
	c.prepared = true
	return nil
}

// Close releases the sparse matrix.
func (c *Circuit) Close() error {
	if c.matrix != nil {
		c.matrix.Destroy()
		c.matrix = nil
	}
	c.slots = rateSlots{}
	c.prepared = false
	return nil
}

func newRateSlots(mat *sparse.Matrix, states int) rateSlots {
	s := rateSlots{
		diag:  make([]*sparse.Element, states-1),
		below: make([]*sparse.Element, states-1),
		above: make([]*sparse.Element, states-1),
		norm:  make([]*sparse.Element, states),
	}
	for k := 0; k < states-1; k++ {
		row := int64(k + 1)
		s.diag[k] = mat.GetElement(row, row)
		if k > 0 {
			s.below[k] = mat.GetElement(row, row-1)
		}
		s.above[k] = mat.GetElement(row, row+1)
	}
	for k := 0; k < states; k++ {
		s.norm[k] = mat.GetElement(int64(states), int64(k+1))
	}
	return s
}

func (c *Circuit) states() int { return c.dot.nMax - c.dot.nMin + 1 }

func (c *Circuit) electrodeIndex(name string) (int, bool) {
	for i, e := range c.electrodes {
		if e.name == name {
			return i, true
		}
	}
	return -1, false
}

// Factory builds the source/drain/gate transistor. vg becomes the initial gate
// bias of the returned circuit.
func Factory(vg float64, p device.Params) (device.Model, error) {
	if p.NumE < 0 {
		return nil, fmt.Errorf("%w: num_e %d", device.ErrInvalidParam, p.NumE)
	}

	c := New()
	steps := []func() error{
		func() error { return c.AddMetallicDot(device.Dot, p.NumE, -p.NumE, 0) },
		func() error { return c.AddLead(device.Source) },
		func() error { return c.AddLead(device.Drain) },
		func() error { return c.AddGate(device.Gate) },
		func() error { return c.AddLink(device.Dot, device.Drain, p.Cd, p.Gd) },
		func() error { return c.AddLink(device.Dot, device.Source, p.Cs, p.Gs) },
		func() error { return c.AddLink(device.Dot, device.Gate, p.Cg, 0) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	idx, _ := c.electrodeIndex(device.Gate)
	c.bias[idx] = vg
	return c, nil
}
