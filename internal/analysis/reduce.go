package analysis

import "fmt"

// Series holds the raw observables of one drain sweep at fixed gate voltage.
type Series struct {
	Current    []float64
	Occupation []float64
	Potential  []float64
}

func (s Series) Len() int { return len(s.Current) }

// Append records one grid point.
func (s *Series) Append(current, occupation, potential float64) {
	s.Current = append(s.Current, current)
	s.Occupation = append(s.Occupation, occupation)
	s.Potential = append(s.Potential, potential)
}

// Reduction is one field column F sampled on axis Y.
type Reduction struct {
	F []float64
	Y []float64
}

// Reduce applies the mode table to one drain sweep:
//
//	current  I                              on vd
//	difcon   dI/dvd                × 1e3    on the derived axis
//	voltage  V                              on vd
//	francis  (dI/dvd)/(d(vd-V)/dvd) × 1e3   on the derived axis
//	sourcis  (dI/dvd)/(dV/dvd)      × 1e3   on the derived axis
//
// The francis and sourcis quotients are not guarded against zero denominators;
// a flat denominator yields Inf or NaN in the output.
func Reduce(mode Mode, vd []float64, s Series) (Reduction, error) {
	if s.Len() != len(vd) || len(s.Occupation) != len(vd) || len(s.Potential) != len(vd) {
		return Reduction{}, fmt.Errorf("%w: series of %d/%d/%d on %d drain points",
			ErrLengthMismatch, len(s.Current), len(s.Occupation), len(s.Potential), len(vd))
	}

	switch mode {
	case Current:
		return Reduction{F: clone(s.Current), Y: clone(vd)}, nil

	case Voltage:
		return Reduction{F: clone(s.Potential), Y: clone(vd)}, nil

	case Difcon:
		f, y, err := Derive(s.Current, vd)
		if err != nil {
			return Reduction{}, fmt.Errorf("difcon: %w", err)
		}
		scale(f, mode.Scale())
		return Reduction{F: f, Y: y}, nil

	case Francis:
		drop := make([]float64, len(vd))
		for i := range vd {
			drop[i] = vd[i] - s.Potential[i]
		}
		return quotient(mode, s.Current, drop, vd)

	case Sourcis:
		return quotient(mode, s.Current, s.Potential, vd)
	}

	return Reduction{}, fmt.Errorf("%w: %v", ErrUnknownMode, mode)
}

func quotient(mode Mode, num, den, vd []float64) (Reduction, error) {
	dn, y, err := Derive(num, vd)
	if err != nil {
		return Reduction{}, fmt.Errorf("%s: %w", mode, err)
	}
	dd, _, err := Derive(den, vd)
	if err != nil {
		return Reduction{}, fmt.Errorf("%s: %w", mode, err)
	}

	f := make([]float64, len(dn))
	for i := range f {
		f[i] = dn[i] / dd[i]
	}
	scale(f, mode.Scale())
	return Reduction{F: f, Y: y}, nil
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
