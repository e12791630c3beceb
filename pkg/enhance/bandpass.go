package enhance

import "math"

// biquad is a single direct-form-II-transposed second-order IIR section.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (s *biquad) process(x float64) float64 {
	y := s.b0*x + s.z1
	s.z1 = s.b1*x - s.a1*y + s.z2
	s.z2 = s.b2*x - s.a2*y
	return y
}

// bandpass applies an order-order Butterworth bandpass filter between
// lowHz and highHz at sampleRate, implemented as a cascade of second-order
// sections (one section per pole pair, cascaded order/2 times rounded up, to
// match the odd order=3 case used for speech enhancement).
func bandpass(x []float32, sampleRate int, lowHz, highHz float64, order int) []float32 {
	if len(x) == 0 || sampleRate <= 0 {
		return x
	}

	sections := buildButterworthBandpass(sampleRate, lowHz, highHz, order)

	out := make([]float32, len(x))
	for i, s := range x {
		v := float64(s)
		for j := range sections {
			v = sections[j].process(v)
		}
		out[i] = float32(v)
	}
	return out
}

// buildButterworthBandpass designs a bandpass filter by cascading one
// biquad per upper-half-plane pole of the order-`order` analog lowpass
// prototype (the real pole of an odd order counted once), pre-warped via
// the bilinear transform — a construction used when a canned coefficient
// table isn't available.
func buildButterworthBandpass(sampleRate int, lowHz, highHz float64, order int) []biquad {
	nyquist := float64(sampleRate) / 2.0
	low := lowHz / nyquist
	high := highHz / nyquist

	// Analog prototype bandpass center frequency and bandwidth (normalized,
	// pre-warped for the bilinear transform).
	fs := 2.0
	w1 := prewarp(low, fs)
	w2 := prewarp(high, fs)
	bw := w2 - w1
	w0 := math.Sqrt(w1 * w2)

	sections := make([]biquad, 0, (order+1)/2)
	poles := butterworthPoles(order)
	for _, p := range poles {
		sections = append(sections, bandpassSectionFromPole(p, w0, bw, fs))
	}
	return sections
}

// prewarp maps a normalized digital frequency (0..1, 1 = Nyquist) to its
// pre-warped analog equivalent for the bilinear transform at sample rate fs.
func prewarp(normalizedFreq, fs float64) float64 {
	return 2 * fs * math.Tan(math.Pi*normalizedFreq/2)
}

// butterworthPoles returns the upper-half-plane analog lowpass prototype
// poles for an order-n Butterworth filter, angularly spaced around the unit
// circle.
func butterworthPoles(n int) []complex128 {
	poles := make([]complex128, 0, n)
	for k := 0; k < n; k++ {
		theta := math.Pi * (2*float64(k) + float64(n) + 1) / (2 * float64(n))
		p := complex(math.Cos(theta), math.Sin(theta))
		if imag(p) > 1e-9 {
			poles = append(poles, p)
		}
	}
	// Odd order leaves one real pole (theta giving Im ~ 0); include it once.
	if n%2 == 1 {
		theta := math.Pi
		poles = append(poles, complex(math.Cos(theta), 0))
	}
	return poles
}

// bandpassSectionFromPole converts one lowpass-prototype pole into a
// digital biquad section implementing that pole's contribution to the
// bandpass transfer function, via analog bandpass transform + bilinear
// transform.
func bandpassSectionFromPole(p complex128, w0, bw, fs float64) biquad {
	// Analog lowpass -> bandpass pole transform: s = (s^2 + w0^2) / (bw*s),
	// evaluated at the prototype pole location scaled by bw/2.
	sp := p * complex(bw/2, 0)
	// Resulting bandpass pole pair (quadratic in s): solve s^2 - 2*sp*s + (sp^2+w0^2) = 0
	disc := sp*sp - complex(w0*w0, 0)
	sq := complexSqrt(disc)
	s1 := sp + sq
	s2 := sp - sq

	// Bilinear transform each analog pole to a digital pole: z = (1+s/fs)/(1-s/fs)... combine pair into one real biquad.
	z1 := bilinear(s1, fs)
	z2 := bilinear(s2, fs)

	// Digital biquad denominator from the pole pair (1 - z1*z^-1)(1 - z2*z^-1):
	a1 := real(-(z1 + z2))
	a2 := real(z1 * z2)

	// Numerator: a bandpass section has a zero at DC and at Nyquist, giving
	// (1 - z^-2) scaled to unity gain at the design center frequency.
	b0 := 1.0
	b1 := 0.0
	b2 := -1.0

	// Normalize gain to ~1 at the center frequency w0 so cascading sections
	// doesn't compound attenuation.
	gain := biquadGainAt(b0, b1, b2, a1, a2, w0, fs)
	if gain != 0 {
		b0 /= gain
		b1 /= gain
		b2 /= gain
	}

	return biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}

func bilinear(s complex128, fs float64) complex128 {
	num := complex(fs, 0) + s
	den := complex(fs, 0) - s
	return num / den
}

func complexSqrt(c complex128) complex128 {
	r := math.Hypot(real(c), imag(c))
	re := math.Sqrt((r + real(c)) / 2)
	im := math.Sqrt((r - real(c)) / 2)
	if imag(c) < 0 {
		im = -im
	}
	return complex(re, im)
}

// biquadGainAt returns the magnitude response of the section at angular
// frequency w0 (rad/s, analog), evaluated on the unit circle at the
// corresponding digital frequency.
func biquadGainAt(b0, b1, b2, a1, a2, w0, fs float64) float64 {
	digitalW := 2 * math.Atan(w0/(2*fs))
	zr, zi := math.Cos(digitalW), math.Sin(digitalW)
	z := complex(zr, zi)
	zInv := complex(1, 0) / z
	zInv2 := zInv * zInv

	num := complex(b0, 0) + complex(b1, 0)*zInv + complex(b2, 0)*zInv2
	den := complex(1, 0) + complex(a1, 0)*zInv + complex(a2, 0)*zInv2
	h := num / den
	return math.Hypot(real(h), imag(h))
}
