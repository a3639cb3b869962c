// Package analysis characterizes the order/disorder transition of a flock.
//
//   - [NoiseSweep]: stationary order parameter over a list of noise amplitudes
//   - [CriticalNoise]: noise at the steepest drop of a sweep
//   - [OrderSpectrum]: amplitude spectrum of an order parameter time series
//
// # Locating the transition
//
//	points, err := analysis.NoiseSweep(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	eta, err := analysis.CriticalNoise(points)
package analysis
