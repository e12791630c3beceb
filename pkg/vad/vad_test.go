package vad

import "testing"

func silentFrame() []int16 {
	return make([]int16, FrameSamples)
}

func loudFrame() []int16 {
	f := make([]int16, FrameSamples)
	for i := range f {
		if i%2 == 0 {
			f[i] = 20000
		} else {
			f[i] = -20000
		}
	}
	return f
}

func TestRMSEngine_SilenceIsZero(t *testing.T) {
	e := NewRMSEngine()
	p, err := e.Probability(silentFrame())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 0 {
		t.Errorf("expected probability 0 for all-zero frame, got %f", p)
	}
}

func TestRMSEngine_LoudFrameExceedsThreshold(t *testing.T) {
	e := NewRMSEngine()
	p, err := e.Probability(loudFrame())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p < 0.5 {
		t.Errorf("expected loud frame probability >= 0.5, got %f", p)
	}
}

func TestRMSEngine_RejectsWrongFrameSize(t *testing.T) {
	e := NewRMSEngine()
	_, err := e.Probability(make([]int16, FrameSamples-1))
	if err != ErrInsufficientSamples {
		t.Errorf("expected ErrInsufficientSamples, got %v", err)
	}
}

func buildBuffer(frames ...[]int16) []int16 {
	var out []int16
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

func TestAnalyze_TrimsLeadingSilenceKeepingContext(t *testing.T) {
	e := NewRMSEngine()
	buf := buildBuffer(silentFrame(), silentFrame(), silentFrame(), silentFrame(), silentFrame(), loudFrame())
	drop, maxProb, err := Analyze(e, buf, 0.2, 0.5, 64, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxProb < 0.5 {
		t.Errorf("expected tail window to report speech, got maxProb=%f", maxProb)
	}
	// 5 silent frames, keep ~2 frames of context (64ms/32ms) -> drop roughly 3 frames worth.
	if drop <= 0 {
		t.Errorf("expected a positive leading-silence trim, got %d", drop)
	}
	if drop >= 5*FrameSamples {
		t.Errorf("expected trim to preserve some context before the drop, got %d", drop)
	}
}

func TestAnalyze_NoTrimWhenVoiceStartsImmediately(t *testing.T) {
	e := NewRMSEngine()
	buf := buildBuffer(loudFrame(), loudFrame())
	drop, _, err := Analyze(e, buf, 0.2, 0.5, 96, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drop != 0 {
		t.Errorf("expected no trim when voice starts immediately, got drop=%d", drop)
	}
}

func TestAnalyze_InsufficientSamples(t *testing.T) {
	e := NewRMSEngine()
	_, _, err := Analyze(e, make([]int16, FrameSamples-1), 0.2, 0.5, 96, 3)
	if err != ErrInsufficientSamples {
		t.Errorf("expected ErrInsufficientSamples, got %v", err)
	}
}
