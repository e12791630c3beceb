package vad

import "math"

// RMSEngine is a dependency-free FrameProber based on per-frame root-mean-
// square energy, the "or equivalent" fallback when the Silero ONNX backend
// is unavailable. It carries no hidden state across frames — Reset is a
// no-op — since RMS energy is stateless by construction.
type RMSEngine struct{}

// NewRMSEngine creates a stateless RMS-energy frame prober.
func NewRMSEngine() *RMSEngine {
	return &RMSEngine{}
}

// Probability returns a pseudo-probability in [0, 1] derived from the
// frame's RMS energy relative to full scale. It is a crude substitute for a
// trained model's output but is monotonic in loudness, which is all the
// leading-silence-trim and tail-max logic in Analyze require.
func (e *RMSEngine) Probability(frame []int16) (float64, error) {
	if len(frame) != FrameSamples {
		return 0, ErrInsufficientSamples
	}
	var sum float64
	for _, s := range frame {
		f := float64(s) / 32768.0
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	// Scale so that a -20dBFS tone (rms ~= 0.1) sits near the default 0.5
	// threshold; clamp to [0, 1].
	p := rms * 5.0
	if p > 1.0 {
		p = 1.0
	}
	return p, nil
}

func (e *RMSEngine) Reset()      {}
func (e *RMSEngine) Close() error { return nil }
