package orthodox

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfilmer/SETfit/internal/device"
)

// e/CΣ = 40 mV, one electron per 80 mV of gate voltage.
var testParams = device.Params{
	Cs:   1e-18,
	Cd:   1e-18,
	Cg:   2e-18,
	Gs:   1e-6,
	Gd:   1e-6,
	NumE: 1,
}

func solveAt(t *testing.T, kelvin, vd, vg float64) *Circuit {
	t.Helper()
	m, err := Factory(vg, testParams)
	require.NoError(t, err)
	c := m.(*Circuit)
	t.Cleanup(func() { _ = c.Close() })

	c.SetTemperature(kelvin)
	require.NoError(t, c.PreProcess())
	require.NoError(t, c.Configure(device.Bias{Source: 0, Drain: vd, Gate: vg}))
	require.NoError(t, c.Solve())
	return c
}

func TestProbabilitiesNormalized(t *testing.T) {
	for _, vg := range []float64{0, 20, 40, 60, 80} {
		c := solveAt(t, 4.2, 5, vg)
		sum := 0.0
		for _, p := range c.Probabilities() {
			require.GreaterOrEqual(t, p, -1e-12)
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-9, "vg=%v", vg)
	}
}

func TestCoulombBlockade(t *testing.T) {
	c := solveAt(t, 0.1, 1, 0)
	i, err := c.Current(device.Drain, device.Dot)
	require.NoError(t, err)
	require.Less(t, math.Abs(i), 1e-18)

	n, err := c.Occupation(device.Dot)
	require.NoError(t, err)
	require.InDelta(t, 0, n, 1e-6)
}

func TestDegeneracyPointConducts(t *testing.T) {
	c := solveAt(t, 0.1, 1, 40)
	i, err := c.Current(device.Drain, device.Dot)
	require.NoError(t, err)
	require.Greater(t, i, 1e-12)

	// reversing the drain bias reverses the current
	r := solveAt(t, 0.1, -1, 40)
	ir, err := r.Current(device.Drain, device.Dot)
	require.NoError(t, err)
	require.Less(t, ir, -1e-12)
}

func TestCurrentConservation(t *testing.T) {
	c := solveAt(t, 1, 30, 25)
	id, err := c.Current(device.Drain, device.Dot)
	require.NoError(t, err)
	is, err := c.Current(device.Source, device.Dot)
	require.NoError(t, err)
	require.InDelta(t, 0, id+is, 1e-6*math.Abs(id)+1e-20)
}

func TestOccupationStaircase(t *testing.T) {
	tests := []struct {
		vg       float64
		expected float64
	}{
		{-80, -1},
		{0, 0},
		{80, 1},
	}
	for _, tt := range tests {
		c := solveAt(t, 0.1, 0, tt.vg)
		n, err := c.Occupation(device.Dot)
		require.NoError(t, err)
		require.InDelta(t, tt.expected, n, 1e-3, "vg=%v", tt.vg)
	}
}

func TestPotentialAtZeroBias(t *testing.T) {
	c := solveAt(t, 0.1, 0, 0)
	v, err := c.Potential(device.Dot)
	require.NoError(t, err)
	require.InDelta(t, 0, v, 1e-9)
}

func TestZeroTemperatureRates(t *testing.T) {
	c := New()
	c.SetTemperature(0)
	require.Equal(t, 0.0, c.rate(1e-21, 1e-6))
	require.InDelta(t, 1e-21*1e-6/(electronCharge*electronCharge), c.rate(-1e-21, 1e-6), 1)
}

func TestRateDetailedBalance(t *testing.T) {
	c := New()
	c.SetTemperature(4.2)
	df := 2e-23
	kt := boltzmann * 4.2
	ratio := c.rate(df, 1e-6) / c.rate(-df, 1e-6)
	require.InDelta(t, math.Exp(-df/kt), ratio, 1e-12)
	require.InDelta(t, 1e-6/(electronCharge*electronCharge)*kt, c.rate(0, 1e-6), 1)
}

func TestErrors(t *testing.T) {
	m, err := Factory(0, testParams)
	require.NoError(t, err)
	c := m.(*Circuit)
	defer c.Close()

	require.ErrorIs(t, c.Solve(), device.ErrNotPrepared)
	require.ErrorIs(t, c.Configure(device.Bias{}), device.ErrNotPrepared)

	c.SetTemperature(1)
	require.NoError(t, c.PreProcess())
	_, err = c.Occupation(device.Dot)
	require.ErrorIs(t, err, device.ErrNotPrepared)

	require.NoError(t, c.Configure(device.Bias{Drain: 1}))
	require.NoError(t, c.Solve())

	_, err = c.Current("gate", device.Dot)
	require.ErrorIs(t, err, device.ErrUnknownNode)
	_, err = c.Current("bulk", device.Dot)
	require.ErrorIs(t, err, device.ErrUnknownNode)
	_, err = c.Potential("island")
	require.ErrorIs(t, err, device.ErrUnknownNode)

	require.ErrorIs(t, c.ConfigureVector([]float64{0, 1}), device.ErrInvalidParam)
}

func TestTopologyValidation(t *testing.T) {
	c := New()
	require.ErrorIs(t, c.AddMetallicDot("dot", -1, 1, 0), device.ErrInvalidParam)
	require.NoError(t, c.AddMetallicDot("dot", 1, -1, 0))
	require.ErrorIs(t, c.AddMetallicDot("dot2", 1, -1, 0), device.ErrInvalidParam)

	require.NoError(t, c.AddGate("gate"))
	require.ErrorIs(t, c.AddGate("gate"), device.ErrInvalidParam)
	require.ErrorIs(t, c.AddLink("dot", "gate", 1e-18, 1e-6), device.ErrInvalidParam)
	require.ErrorIs(t, c.AddLink("dot", "drain", 1e-18, 1e-6), device.ErrUnknownNode)
	require.ErrorIs(t, c.AddLink("island", "gate", 1e-18, 0), device.ErrUnknownNode)

	require.ErrorIs(t, c.PreProcess(), device.ErrInvalidParam)

	_, err := Factory(0, device.Params{NumE: -1})
	require.ErrorIs(t, err, device.ErrInvalidParam)
}

func TestFactoryAppliesGateVoltage(t *testing.T) {
	m, err := Factory(12.5, testParams)
	require.NoError(t, err)
	c := m.(*Circuit)
	idx, ok := c.electrodeIndex(device.Gate)
	require.True(t, ok)
	require.Equal(t, 12.5, c.bias[idx])
}

func TestRepeatedSolvesOnOneCircuit(t *testing.T) {
	m, err := Factory(40, testParams)
	require.NoError(t, err)
	c := m.(*Circuit)
	t.Cleanup(func() { _ = c.Close() })

	c.SetTemperature(4.2)
	require.NoError(t, c.PreProcess())

	for _, vd := range []float64{-10, -5, 0, 1, 2, 5, 10, 2} {
		b := device.Bias{Source: 0, Drain: vd, Gate: 40}
		require.NoError(t, c.Configure(b), "vd=%v", vd)
		require.NoError(t, c.Solve(), "vd=%v", vd)

		sum := 0.0
		for _, p := range c.Probabilities() {
			require.GreaterOrEqual(t, p, -1e-12)
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-9, "vd=%v", vd)

		// a reused matrix must agree with a fresh circuit at the same bias
		got, err := c.Current(device.Drain, device.Dot)
		require.NoError(t, err)
		want, err := solveAt(t, 4.2, vd, 40).Current(device.Drain, device.Dot)
		require.NoError(t, err)
		require.InDelta(t, want, got, 1e-6*math.Abs(want)+1e-18, "vd=%v", vd)
	}
}

func TestPreProcessAfterSolve(t *testing.T) {
	c := solveAt(t, 0.1, 1, 40)
	require.NoError(t, c.PreProcess())
	require.NoError(t, c.Configure(device.Bias{Drain: 2, Gate: 40}))
	require.NoError(t, c.Solve())
	require.NoError(t, c.Configure(device.Bias{Drain: 3, Gate: 40}))
	require.NoError(t, c.Solve())
}
