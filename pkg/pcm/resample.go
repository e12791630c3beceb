package pcm

import "math"

// resamplePolyphase resamples x from srcRate to dstRate using a windowed-sinc
// polyphase filter, with up/down factors reduced by gcd(srcRate, dstRate) so
// the filter only needs to run at the lower of the two rates' worth of taps.
func resamplePolyphase(x []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(x) == 0 {
		return x
	}

	g := gcd(srcRate, dstRate)
	up := dstRate / g
	down := srcRate / g

	taps := designLowpassFilter(up, down)
	filterLen := len(taps)
	center := filterLen / 2

	// Upsample by inserting up-1 zeros between samples, conceptually; we avoid
	// materializing the zero-stuffed signal by only evaluating the filter at
	// the phases that land on an original sample. t indexes the upsampled
	// (rate = srcRate*up) timeline; we step by `down` to land on output
	// samples at the target rate.
	outLen := (len(x) * up) / down
	out := make([]float32, outLen)

	for outIdx := 0; outIdx < outLen; outIdx++ {
		t := outIdx * down
		srcCenter := t - center

		var acc float64
		for k := 0; k < filterLen; k++ {
			pos := srcCenter + k
			if pos < 0 || pos%up != 0 {
				continue
			}
			srcIdx := pos / up
			if srcIdx < 0 || srcIdx >= len(x) {
				continue
			}
			acc += float64(x[srcIdx]) * taps[k]
		}
		out[outIdx] = float32(acc * float64(up))
	}

	return out
}

// designLowpassFilter builds a windowed-sinc lowpass filter sized for a
// polyphase resampler with the given up/down ratio. The cutoff is set to the
// lower of the two Nyquist rates (up or down) so the filter both suppresses
// upsampling images and prevents downsampling aliasing in one pass.
func designLowpassFilter(up, down int) []float64 {
	const halfTapsPerPhase = 8
	cutoff := 1.0 / float64(max(up, down))
	length := 2*halfTapsPerPhase*max(up, down) + 1

	taps := make([]float64, length)
	center := length / 2
	var sum float64
	for i := range taps {
		n := i - center
		var sinc float64
		if n == 0 {
			sinc = 2 * cutoff
		} else {
			x := math.Pi * float64(n) * 2 * cutoff
			sinc = math.Sin(x) / (math.Pi * float64(n))
		}
		// Hamming window.
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(length-1))
		taps[i] = sinc * w
		sum += taps[i]
	}
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return taps
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
