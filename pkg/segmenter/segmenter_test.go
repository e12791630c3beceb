package segmenter

import (
	"testing"

	"github.com/voxseg/segcore/pkg/vad"
)

// fakeProber is a deterministic FrameProber driven by a queue of canned
// probabilities, one per Probability() call, so tests can script exact VAD
// decisions without depending on real audio energy.
type fakeProber struct {
	probs []float64
	idx   int
	resets int
}

func (f *fakeProber) Probability(frame []int16) (float64, error) {
	if f.idx >= len(f.probs) {
		return 0, nil
	}
	p := f.probs[f.idx]
	f.idx++
	return p, nil
}

func (f *fakeProber) Reset()      { f.resets++; f.idx = 0 }
func (f *fakeProber) Close() error { return nil }

func chunk(n int) []int16 {
	return make([]int16, n)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VADWindowSeconds = 0.2 // 3200 samples; Analyze's tail window covers 6 whole 32ms frames
	return cfg
}

func TestSegmenter_SimpleUtterance(t *testing.T) {
	probs := make([]float64, 0, 20)
	for i := 0; i < 10; i++ {
		probs = append(probs, 0.9) // speech throughout
	}
	prober := &fakeProber{probs: probs}
	s := New(testConfig(), prober)

	chunkSamples := vad.FrameSamples * 10 // 320ms, more than one 0.2s vad window
	segs := s.Feed(chunk(chunkSamples), 1.0, "")
	if len(segs) != 0 {
		t.Fatalf("expected no segment yet (still speaking), got %d", len(segs))
	}

	// silence gap via CollectReady
	segs = s.CollectReady(1.0 + testConfig().SilenceGapSeconds + 0.01)
	if len(segs) != 1 {
		t.Fatalf("expected exactly one finalized segment, got %d", len(segs))
	}
	if segs[0].StartTS != 1.0 {
		t.Errorf("expected start_ts 1.0, got %f", segs[0].StartTS)
	}
}

func TestSegmenter_DiscardsTinyBlip(t *testing.T) {
	cfg := testConfig()
	cfg.MinSegmentSeconds = 100.0 // force every non-forced flush to be "too short"
	prober := &fakeProber{probs: []float64{0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9}}
	s := New(cfg, prober)

	chunkSamples := vad.FrameSamples * 10
	s.Feed(chunk(chunkSamples), 1.0, "")
	segs := s.CollectReady(1.0 + cfg.SilenceGapSeconds + 0.01)
	if len(segs) != 0 {
		t.Fatalf("expected tiny blip to be discarded, got %d segments", len(segs))
	}
}

func TestSegmenter_MaxLengthCutoff(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSegmentSeconds = 2.0
	cfg.SilenceGapSeconds = 100.0 // keep the discontinuity flush from firing on the 1.0s -> 3.0s jump
	probs := make([]float64, 0, 40)
	for i := 0; i < 40; i++ {
		probs = append(probs, 0.9)
	}
	prober := &fakeProber{probs: probs}
	s := New(cfg, prober)

	chunkSamples := vad.FrameSamples * 10
	s.Feed(chunk(chunkSamples), 1.0, "")
	segs := s.Feed(chunk(chunkSamples), 3.0, "") // exceeds MaxSegmentSeconds relative to start
	if len(segs) != 1 {
		t.Fatalf("expected max-length cutoff to force a segment, got %d", len(segs))
	}
	if segs[0].EndTS != 3.0 {
		t.Errorf("expected force-flush end_ts 3.0, got %f", segs[0].EndTS)
	}
}

func TestSegmenter_DiscontinuityFlushesBufferedSpeech(t *testing.T) {
	cfg := testConfig()
	probs := make([]float64, 0, 20)
	for i := 0; i < 20; i++ {
		probs = append(probs, 0.9)
	}
	prober := &fakeProber{probs: probs}
	s := New(cfg, prober)

	chunkSamples := vad.FrameSamples * 10
	s.Feed(chunk(chunkSamples), 1.0, "")

	// A big gap before the next chunk arrives should flush the first segment.
	segs := s.Feed(chunk(chunkSamples), 1.0+cfg.SilenceGapSeconds+float64(chunkSamples)/float64(SampleRate)+1.0, "")
	if len(segs) != 1 {
		t.Fatalf("expected discontinuity to flush the prior segment, got %d", len(segs))
	}
}

func TestSegmenter_FlushOnEmptyBufferIsNoop(t *testing.T) {
	s := New(testConfig(), &fakeProber{})
	segs := s.Flush()
	if len(segs) != 0 {
		t.Fatalf("expected no segments from flushing an empty buffer, got %d", len(segs))
	}
}

// TestSegmenter_CollectReadyAppliesMaxLengthCutoff covers a user who stays
// active past max_segment_s but then stops sending chunks entirely: the
// silence-gap branch alone would never fire since last_speech_ts keeps
// advancing only while chunks arrive, so CollectReady must apply the
// max-length cutoff on its own once enough wall-clock time has passed.
func TestSegmenter_CollectReadyAppliesMaxLengthCutoff(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSegmentSeconds = 2.0
	cfg.SilenceGapSeconds = 100.0 // keep the silence-gap branch from firing first
	probs := make([]float64, 0, 10)
	for i := 0; i < 10; i++ {
		probs = append(probs, 0.9)
	}
	prober := &fakeProber{probs: probs}
	s := New(cfg, prober)

	chunkSamples := vad.FrameSamples * 10
	s.Feed(chunk(chunkSamples), 1.0, "")

	segs := s.CollectReady(1.0 + cfg.MaxSegmentSeconds + 0.01)
	if len(segs) != 1 {
		t.Fatalf("expected the max-length cutoff to finalize the segment, got %d", len(segs))
	}
}

func TestSegmenter_FeedThreadsPromptOverrideIntoSegment(t *testing.T) {
	probs := make([]float64, 0, 20)
	for i := 0; i < 20; i++ {
		probs = append(probs, 0.9)
	}
	prober := &fakeProber{probs: probs}
	s := New(testConfig(), prober)

	chunkSamples := vad.FrameSamples * 10
	s.Feed(chunk(chunkSamples), 1.0, "hello there")

	segs := s.CollectReady(1.0 + testConfig().SilenceGapSeconds + 0.01)
	if len(segs) != 1 {
		t.Fatalf("expected exactly one finalized segment, got %d", len(segs))
	}
	if segs[0].Prompt != "hello there" {
		t.Errorf("expected prompt override to survive into the segment, got %q", segs[0].Prompt)
	}
}
