package pcm

import (
	"encoding/binary"
	"math"
)

// Normalize decodes an arbitrary-format PCM buffer and returns mono 16kHz
// 16-bit little-endian PCM. It supports 8-bit unsigned, 16-bit signed, and
// 32-bit (float32 or int32, auto-detected) source formats, downmixing
// interleaved multi-channel audio by arithmetic mean.
func Normalize(data []byte, format Format) ([]byte, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}

	mono, err := decodeToMono(data, format)
	if err != nil {
		return nil, err
	}

	resampled := resamplePolyphase(mono, format.SampleRate, TargetSampleRate)

	return encodePCM16(resampled), nil
}

// decodeToMono decodes raw PCM bytes to float32 samples in [-1, 1] and
// downmixes interleaved channels by arithmetic mean, truncating any
// incomplete trailing frame.
func decodeToMono(data []byte, format Format) ([]float32, error) {
	var samples []float32

	switch format.Width {
	case 1:
		samples = make([]float32, len(data))
		for i, b := range data {
			samples[i] = (float32(b) - 128.0) / 128.0
		}
	case 2:
		n := len(data) / 2
		samples = make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = float32(v) / 32768.0
		}
	case 4:
		n := len(data) / 4
		asFloat := make([]float32, n)
		var maxAbs float32
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			f := math.Float32frombits(bits)
			asFloat[i] = f
			if a := float32(math.Abs(float64(f))); a > maxAbs {
				maxAbs = a
			}
		}
		if maxAbs > 16.0 {
			// Out of plausible float range: reinterpret as signed int32 PCM.
			samples = make([]float32, n)
			for i := 0; i < n; i++ {
				v := int32(binary.LittleEndian.Uint32(data[i*4:]))
				samples[i] = float32(v) / 2147483648.0
			}
		} else {
			samples = asFloat
		}
	default:
		return nil, badFormat("unsupported sample_width: %d", format.Width)
	}

	if format.Channels == 1 {
		return samples, nil
	}

	frames := len(samples) / format.Channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < format.Channels; c++ {
			sum += samples[i*format.Channels+c]
		}
		mono[i] = sum / float32(format.Channels)
	}
	return mono, nil
}

// encodePCM16 clips samples to [-1, 1] and encodes them as signed 16-bit
// little-endian PCM.
func encodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32768.0)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
