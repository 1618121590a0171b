// Package analysis turns one drain sweep into one column of a diamond map.
//
//   - [Derive]: forward difference on a uniform axis, returning the derivative
//     and a one point shorter axis over the same span
//   - [Reduce]: applies a [Mode] to a [Series] of current, occupation and
//     dot potential
//   - [ParseMode]: maps the command line names to modes
//
// # Modes
//
// Current and Voltage pass the series through. Difcon, Francis and Sourcis
// differentiate along the drain axis and scale by 1e3, so their columns are
// one point shorter. A flat denominator yields inf or nan rather than an
// error.
package analysis
