package asr

import "testing"

func TestSuppressRepetition_WholeSegmentCollapsesToMaxRepeats(t *testing.T) {
	text := ""
	for i := 0; i < 20; i++ {
		text += "you "
	}
	got := suppressRepetition(text, 4, false)
	want := "you you you you"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSuppressRepetition_WholeSegmentDroppedWhenDropOnly(t *testing.T) {
	text := ""
	for i := 0; i < 20; i++ {
		text += "you "
	}
	got := suppressRepetition(text, 4, true)
	if got != "" {
		t.Errorf("expected the whole segment to be dropped, got %q", got)
	}
}

func TestSuppressRepetition_PartialRunTruncated(t *testing.T) {
	got := suppressRepetition("i really really really really really like it", 2, false)
	want := "i really really like it"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSuppressRepetition_NoRepetitionUnaffected(t *testing.T) {
	got := suppressRepetition("the quick brown fox", 4, false)
	want := "the quick brown fox"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSuppressRepetition_ZeroMaxRepeatsIsNoop(t *testing.T) {
	got := suppressRepetition("you you you you", 0, true)
	want := "you you you you"
	if got != want {
		t.Errorf("expected no-op passthrough, got %q", got)
	}
}
