// Package pcm normalizes arbitrary-format PCM audio into the mono 16kHz
// 16-bit little-endian stream every downstream component expects.
package pcm

import "fmt"

// TargetSampleRate is the sample rate every normalized buffer is resampled
// to before it reaches the VAD engine or segmenter.
const TargetSampleRate = 16000

// Format describes the encoding of a raw PCM buffer as reported by the
// capture client.
type Format struct {
	SampleRate int
	Channels   int
	Width      int // bytes per sample: 1 (uint8), 2 (int16), or 4 (float32/int32)
}

// BadFormatError reports a PCM buffer the normalizer cannot decode.
type BadFormatError struct {
	Reason string
}

func (e *BadFormatError) Error() string { return fmt.Sprintf("pcm: %s", e.Reason) }

func badFormat(format string, args ...interface{}) error {
	return &BadFormatError{Reason: fmt.Sprintf(format, args...)}
}

func (f Format) validate() error {
	if f.Channels <= 0 {
		return badFormat("invalid channels: %d", f.Channels)
	}
	switch f.Width {
	case 1, 2, 4:
	default:
		return badFormat("unsupported sample_width: %d", f.Width)
	}
	if f.SampleRate <= 0 {
		return badFormat("invalid sample rate: %d", f.SampleRate)
	}
	return nil
}
