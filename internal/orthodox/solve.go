package orthodox

import (
	"fmt"
	"math"

	"github.com/mfilmer/SETfit/internal/device"
)

// Configure applies b to the source, drain and gate electrodes, in the order
// they were added, and recomputes the tunnel rates.
func (c *Circuit) Configure(b device.Bias) error {
	return c.ConfigureVector(b.Vector())
}

// ConfigureVector sets one voltage per electrode in insertion order.
func (c *Circuit) ConfigureVector(v []float64) error {
	if !c.prepared {
		return device.ErrNotPrepared
	}
	if len(v) != len(c.electrodes) {
		return fmt.Errorf("%w: %d voltages for %d electrodes", device.ErrInvalidParam, len(v), len(c.electrodes))
	}
	copy(c.bias, v)
	c.probs = nil
	c.computeRates()
	return nil
}

// externalCharge is sum(C_j V_j) over all links, in coulombs.
func (c *Circuit) externalCharge() float64 {
	q := 0.0
	for _, l := range c.links {
		q += l.c * c.bias[l.electrode] * milli
	}
	return q
}

// potential of the dot with n extra electrons, in volts.
func (c *Circuit) potential(n float64) float64 {
	return (c.externalCharge() + (c.dot.offset-n)*electronCharge) / c.cSum
}

func (c *Circuit) computeRates() {
	states := c.states()
	for li, l := range c.links {
		for k := 0; k < states; k++ {
			c.up[li][k], c.down[li][k] = 0, 0
			if l.g == 0 {
				continue
			}
			n := float64(c.dot.nMin + k)
			vj := c.bias[l.electrode] * milli
			if k < states-1 {
				// electron from lead onto dot, n -> n+1
				df := electronCharge * (vj - c.potential(n+0.5))
				c.up[li][k] = c.rate(df, l.g)
			}
			if k > 0 {
				// electron from dot into lead, n -> n-1
				df := electronCharge * (c.potential(n-0.5) - vj)
				c.down[li][k] = c.rate(df, l.g)
			}
		}
	}
}

// rate is the orthodox tunnel rate for a free energy change df (J) through a
// junction of conductance g.
func (c *Circuit) rate(df, g float64) float64 {
	pref := g / (electronCharge * electronCharge)
	kt := boltzmann * c.kelvin
	if kt == 0 {
		if df < 0 {
			return -df * pref
		}
		return 0
	}
	x := df / kt
	if math.Abs(x) < 1e-9 {
		return pref * kt
	}
	return pref * df / math.Expm1(x)
}

// Solve computes the stationary charge distribution for the configured bias.
func (c *Circuit) Solve() error {
	if !c.prepared {
		return device.ErrNotPrepared
	}

	states := c.states()
	up := make([]float64, states)
	down := make([]float64, states)
	for li := range c.links {
		for k := 0; k < states; k++ {
			up[k] += c.up[li][k]
			down[k] += c.down[li][k]
		}
	}

	c.matrix.Clear()
	rhs := make([]float64, states+1)

	// rows 1..states-1 are balance equations, the last row normalizes
	for k := 0; k < states-1; k++ {
		c.slots.diag[k].Real = -(up[k] + down[k])
		if k > 0 {
			c.slots.below[k].Real = up[k-1]
		}
		c.slots.above[k].Real = down[k+1]
	}
	for _, e := range c.slots.norm {
		e.Real = 1
	}
	rhs[states] = 1

	if err := c.matrix.Factor(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrSingular, err)
	}
	x, err := c.matrix.Solve(rhs)
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrSingular, err)
	}

	probs := make([]float64, states)
	for k := range probs {
		probs[k] = x[k+1]
		if math.IsNaN(probs[k]) || math.IsInf(probs[k], 0) {
			return fmt.Errorf("%w: non-finite probability for n=%d", device.ErrSingular, c.dot.nMin+k)
		}
	}
	c.probs = probs
	return nil
}

func (c *Circuit) checkSolved(node string) error {
	if c.probs == nil {
		return device.ErrNotPrepared
	}
	if node != c.dot.name {
		return fmt.Errorf("%w: %q", device.ErrUnknownNode, node)
	}
	return nil
}

// Current is the conventional current flowing from lead into node through
// their junction, in A.
func (c *Circuit) Current(lead, node string) (float64, error) {
	if err := c.checkSolved(node); err != nil {
		return 0, err
	}
	idx, ok := c.electrodeIndex(lead)
	if !ok || !c.electrodes[idx].lead {
		return 0, fmt.Errorf("%w: lead %q", device.ErrUnknownNode, lead)
	}

	flow := 0.0
	for li, l := range c.links {
		if l.electrode != idx {
			continue
		}
		for k, p := range c.probs {
			flow += p * (c.down[li][k] - c.up[li][k])
		}
	}
	return electronCharge * flow, nil
}

// Occupation is the mean number of extra electrons on node.
func (c *Circuit) Occupation(node string) (float64, error) {
	if err := c.checkSolved(node); err != nil {
		return 0, err
	}
	mean := 0.0
	for k, p := range c.probs {
		mean += p * float64(c.dot.nMin+k)
	}
	return mean, nil
}

// Potential is the mean electrostatic potential of node, in mV.
func (c *Circuit) Potential(node string) (float64, error) {
	if err := c.checkSolved(node); err != nil {
		return 0, err
	}
	v := 0.0
	for k, p := range c.probs {
		v += p * c.potential(float64(c.dot.nMin+k))
	}
	return v / milli, nil
}

// Probabilities returns a copy of the stationary distribution over nMin..nMax.
func (c *Circuit) Probabilities() []float64 {
	out := make([]float64, len(c.probs))
	copy(out, c.probs)
	return out
}
