package grid

// Linspace returns count evenly spaced values over [start, end]. A single
// point holds only start, and the last point is exactly end.
func Linspace(start, end float64, count int) []float64 {
	if count <= 0 {
		return []float64{}
	}
	out := make([]float64, count)
	if count == 1 {
		out[0] = start
		return out
	}
	step := (end - start) / float64(count-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[count-1] = end
	return out
}
