package pcm

import (
	"encoding/binary"
	"math"
	"testing"
)

func int16PCM(values ...int16) []byte {
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func TestNormalize_AlreadyTargetRate(t *testing.T) {
	in := int16PCM(1000, -1000, 2000, -2000)
	out, err := Normalize(in, Format{SampleRate: TargetSampleRate, Channels: 1, Width: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected same-rate passthrough to preserve length, got %d want %d", len(out), len(in))
	}
}

// TestNormalize_MonoSameRateRoundTripsByteIdentical covers the exact
// invariant from spec.md §8: normalizing already-mono, already-16kHz,
// 16-bit PCM must return the input unchanged, byte for byte.
func TestNormalize_MonoSameRateRoundTripsByteIdentical(t *testing.T) {
	in := int16PCM(1000, -1000, 2000, -2000)
	out, err := Normalize(in, Format{SampleRate: TargetSampleRate, Channels: 1, Width: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(in) {
		t.Fatalf("expected byte-identical round trip, got %v want %v", out, in)
	}
}

func TestNormalize_StereoDownmix(t *testing.T) {
	// Two frames of stereo: (1000, 3000) and (-1000, -3000) -> mono averages 2000, -2000.
	in := int16PCM(1000, 3000, -1000, -3000)
	out, err := Normalize(in, Format{SampleRate: TargetSampleRate, Channels: 2, Width: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 2 mono samples (4 bytes), got %d bytes", len(out))
	}
	v0 := int16(binary.LittleEndian.Uint16(out[0:]))
	if v0 != 2000 {
		t.Errorf("expected first downmixed sample 2000, got %d", v0)
	}
}

func TestNormalize_RejectsInvalidWidth(t *testing.T) {
	_, err := Normalize([]byte{0, 1, 2}, Format{SampleRate: 16000, Channels: 1, Width: 3})
	if err == nil {
		t.Fatal("expected error for unsupported sample width")
	}
}

func TestNormalize_RejectsInvalidChannels(t *testing.T) {
	_, err := Normalize([]byte{0, 1}, Format{SampleRate: 16000, Channels: 0, Width: 2})
	if err == nil {
		t.Fatal("expected error for invalid channel count")
	}
}

func TestNormalize_Resamples8kTo16k(t *testing.T) {
	// 100 samples of a low-frequency tone at 8kHz, resampled to 16kHz should
	// roughly double in length.
	n := 100
	in := make([]int16, n)
	for i := range in {
		in[i] = int16(10000 * math.Sin(2*math.Pi*float64(i)/20))
	}
	out, err := Normalize(int16PCM(in...), Format{SampleRate: 8000, Channels: 1, Width: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotSamples := len(out) / 2
	want := n * 2
	// Allow slack for filter edge effects.
	if gotSamples < want-4 || gotSamples > want+4 {
		t.Errorf("expected roughly %d resampled samples, got %d", want, gotSamples)
	}
}

func TestNormalize_Float32Input(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(-0.5))
	out, err := Normalize(buf, Format{SampleRate: TargetSampleRate, Channels: 1, Width: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v0 := int16(binary.LittleEndian.Uint16(out[0:]))
	if v0 < 16000 || v0 > 16500 {
		t.Errorf("expected ~0.5*32767, got %d", v0)
	}
}
