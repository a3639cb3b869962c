package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// OrderSpectrum returns the amplitude spectrum of an order parameter series
// with its mean removed. Bin k corresponds to frequency k/(len(series)·dt).
func OrderSpectrum(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}

	mean, _ := meanStd(series)
	centered := make([]float64, len(series))
	for i, v := range series {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}
