// Package enhance improves the signal quality of a finalized speech segment
// before it is handed to the ASR worker: pre-emphasis, a bandpass filter
// limiting the signal to the speech band, and RMS loudness normalization.
package enhance

import "math"

const (
	// PreEmphasisCoeff is the first-order pre-emphasis filter coefficient.
	PreEmphasisCoeff = 0.8
	// BandpassLowHz and BandpassHighHz bound the speech band the bandpass
	// filter preserves.
	BandpassLowHz  = 250.0
	BandpassHighHz = 3300.0
	// BandpassOrder is the Butterworth filter order.
	BandpassOrder = 3
	// TargetDB is the RMS-normalization target in dBFS.
	TargetDB = -20.0
)

// Speech runs the full enhancement chain (pre-emphasis, bandpass, RMS
// normalize) over samples in [-1, 1] sampled at sampleRate Hz, returning a
// new slice clipped back to [-1, 1].
func Speech(samples []float32, sampleRate int) []float32 {
	out := preEmphasis(samples, PreEmphasisCoeff)
	out = bandpass(out, sampleRate, BandpassLowHz, BandpassHighHz, BandpassOrder)
	out = rmsNormalize(out, TargetDB)
	for i, s := range out {
		if s > 1.0 {
			out[i] = 1.0
		} else if s < -1.0 {
			out[i] = -1.0
		}
	}
	return out
}

// preEmphasis applies y[n] = x[n] - coeff*x[n-1].
func preEmphasis(x []float32, coeff float32) []float32 {
	if len(x) == 0 {
		return x
	}
	y := make([]float32, len(x))
	y[0] = x[0]
	for i := 1; i < len(x); i++ {
		y[i] = x[i] - coeff*x[i-1]
	}
	return y
}

// rmsNormalize scales x so its RMS matches targetDB dBFS. A silent buffer
// (rms == 0) is returned unchanged.
func rmsNormalize(x []float32, targetDB float64) []float32 {
	if len(x) == 0 {
		return x
	}
	var sumSq float64
	for _, s := range x {
		sumSq += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSq / float64(len(x)))
	if rms == 0 {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}
	targetRMS := math.Pow(10, targetDB/20.0)
	gain := float32(targetRMS / rms)
	out := make([]float32, len(x))
	for i, s := range x {
		out[i] = s * gain
	}
	return out
}
