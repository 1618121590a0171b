// Package viz renders sweep results in the terminal.
//
//   - [Heatmap]: colored diamond map with axis labels and an optional colorbar
//   - [Line]: 1D trace through asciigraph
//   - [Mask]: Braille rendering of where a field exceeds a threshold
//
// # Scaling
//
// Linear plots use the symmetric range [-gmax, gmax]. With a log floor set,
// values are clamped to [glog, gmax] and plotted on log10. NegConductance
// takes absolute values first, so negative differential conductance shows up
// on a log scale.
package viz
