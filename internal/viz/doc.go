// Package viz renders flock diagnostics in the terminal.
//
//   - [Summary]: lipgloss panel describing a snapshot
//   - [OrderChart]: asciigraph plot of an order parameter series
//   - [ProgressModel]: Bubble Tea view of a running calibration
//
// # Key Bindings
//
//	q, Ctrl+C - stop watching and cancel the calibration
package viz
