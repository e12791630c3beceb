// Package vad provides frame-wise speech-probability estimation over 16kHz
// PCM audio, plus the leading-silence-trim/tail-max analysis the per-user
// segmenter drives it with.
package vad

import "fmt"

// SampleRate is the only sample rate frame probers accept.
const SampleRate = 16000

// FrameMs is the fixed frame size every FrameProber evaluates probability
// over: 32ms, i.e. 512 samples at 16kHz.
const FrameMs = 32

// FrameSamples is FrameMs worth of samples at SampleRate.
const FrameSamples = SampleRate * FrameMs / 1000

// FrameProber evaluates per-frame speech probability over fixed 32ms windows.
// Implementations may be stateful (an RNN hidden state, in Silero's case);
// Reset clears that state between segments.
type FrameProber interface {
	// Probability returns the speech probability in [0, 1] for exactly one
	// FrameSamples-length frame.
	Probability(frame []int16) (float64, error)
	Reset()
	Close() error
}

// ErrInsufficientSamples is returned by Analyze when the buffer doesn't
// contain at least one full frame.
var ErrInsufficientSamples = fmt.Errorf("vad: insufficient samples for one %dms frame", FrameMs)

// Analyze runs prober over every complete frame in pcm16 and returns:
//   - dropSamples: how many leading samples can be safely trimmed as
//     silence, preserving keepContextMs worth of frames before the first
//     detected voice frame;
//   - maxProb: the maximum frame probability within the trailing windowS
//     seconds of the buffer.
//
// minConsecutive low-probability frames must occur at the start before any
// leading-silence trim is suggested at all — a single quiet frame at the
// very start of a buffer that immediately goes loud should not be trimmed.
func Analyze(prober FrameProber, pcm16 []int16, windowS float64, threshold float64, keepContextMs int, minConsecutive int) (dropSamples int, maxProb float64, err error) {
	if windowS <= 0 {
		return 0, 0, fmt.Errorf("vad: windowS must be > 0")
	}
	if len(pcm16) == 0 {
		return 0, 0, ErrInsufficientSamples
	}

	nFrames := len(pcm16) / FrameSamples
	if nFrames <= 0 {
		return 0, 0, ErrInsufficientSamples
	}

	windowFrames := int(windowS * SampleRate / FrameSamples)
	if windowFrames < 1 {
		windowFrames = 1
	}
	tailFrames := nFrames
	if windowFrames < tailFrames {
		tailFrames = windowFrames
	}
	startTailIdx := nFrames - tailFrames

	keepCtxFrames := int(float64(keepContextMs)/float64(FrameMs) + 0.5)
	if keepCtxFrames < 1 {
		keepCtxFrames = 1
	}

	leadingLow := 0
	foundVoice := false
	var maxPTail float64

	for i := 0; i < nFrames; i++ {
		frame := pcm16[i*FrameSamples : (i+1)*FrameSamples]
		p, err := prober.Probability(frame)
		if err != nil {
			return 0, 0, err
		}

		if !foundVoice {
			if p < threshold {
				leadingLow++
			} else {
				foundVoice = true
			}
		}

		if i >= startTailIdx && p > maxPTail {
			maxPTail = p
		}
	}

	dropFrames := 0
	if leadingLow >= minConsecutive {
		dropFrames = leadingLow - keepCtxFrames
		if dropFrames < 0 {
			dropFrames = 0
		}
	}

	return dropFrames * FrameSamples, maxPTail, nil
}
