// Package segmenter buffers per-user PCM audio into finalized speech
// segments, driven by a VAD frame prober and a handful of timing
// thresholds.
package segmenter

import (
	"github.com/voxseg/segcore/pkg/vad"
)

// SampleRate is the sample rate every fed PCM buffer must already be at —
// callers are responsible for running pkg/pcm.Normalize first.
const SampleRate = vad.SampleRate

// Segment is one finalized span of speech audio, ready for enhancement and
// transcription.
type Segment struct {
	PCM     []int16
	StartTS float64
	EndTS   float64
	Prompt  string
}

// Config tunes a Segmenter's thresholds.
type Config struct {
	SilenceGapSeconds float64
	MaxSegmentSeconds float64
	MinSegmentSeconds float64
	VADThreshold      float64
	VADWindowSeconds  float64
	KeepContextMs     int
	MinConsecutive    int
}

// DefaultConfig matches the defaults of the system this module reimplements.
func DefaultConfig() Config {
	return Config{
		SilenceGapSeconds: 0.8,
		MaxSegmentSeconds: 25.0,
		MinSegmentSeconds: 0.2,
		VADThreshold:      0.5,
		VADWindowSeconds:  0.2,
		KeepContextMs:     96,
		MinConsecutive:    3,
	}
}

// bufferState holds the audio accumulated for the segment currently being
// built. A zero-value bufferState represents "nothing buffered".
type bufferState struct {
	startedTS     float64
	hasStarted    bool
	lastSpeechTS  float64
	hasSpeech     bool
	lastCaptureTS float64
	hasCapture    bool
	samples       []int16
	prompt        string
}

func (b *bufferState) trimPrefix(n int) {
	if n <= 0 || len(b.samples) == 0 {
		return
	}
	if n >= len(b.samples) {
		b.samples = b.samples[:0]
		return
	}
	b.samples = append([]int16(nil), b.samples[n:]...)
}

// Segmenter accumulates one user's audio into SpeechSegments. It is not
// safe for concurrent use — the orchestrator owns one Segmenter per user
// and calls it only from its own goroutine.
type Segmenter struct {
	cfg    Config
	prober vad.FrameProber
	buf    bufferState
}

// New creates a Segmenter using prober for frame-wise speech probability.
func New(cfg Config, prober vad.FrameProber) *Segmenter {
	return &Segmenter{cfg: cfg, prober: prober}
}

func (s *Segmenter) totalSamples() int { return len(s.buf.samples) }

// Feed appends one chunk of mono 16kHz PCM16 audio, captured at captureTS
// (unix seconds), and returns any segments that become ready for emission
// as a direct consequence of this chunk — a discontinuity flush, a
// max-length cutoff, or a silence-gap flush when the chunk's tail window is
// silent and captureTS is at least the silence gap past the last speech.
// CollectReady, called periodically by the orchestrator's flusher, applies
// the silence-gap and max-length checks against the clock as well, so a
// quiet user doesn't wait for its next chunk to be finalized. A non-empty
// prompt overrides the in-progress segment's prompt, most-recent-wins.
func (s *Segmenter) Feed(pcm []int16, captureTS float64, prompt string) []Segment {
	var finalized []Segment

	if len(s.buf.samples) > 0 && s.buf.hasCapture {
		incomingDur := float64(len(pcm)) / float64(SampleRate)
		incomingStartTS := captureTS - incomingDur
		gap := incomingStartTS - s.buf.lastCaptureTS
		if gap >= s.cfg.SilenceGapSeconds {
			endTS := s.buf.lastCaptureTS
			if s.buf.hasSpeech {
				endTS = s.buf.lastSpeechTS
			}
			if seg, ok := s.flush(false, endTS); ok {
				finalized = append(finalized, seg)
			}
		}
	}

	if len(pcm) == 0 {
		return finalized
	}

	s.buf.samples = append(s.buf.samples, pcm...)
	s.buf.lastCaptureTS = captureTS
	s.buf.hasCapture = true
	if prompt != "" {
		s.buf.prompt = prompt
	}

	minFrameSamples := int(s.cfg.VADWindowSeconds * float64(SampleRate))
	if s.totalSamples() < minFrameSamples {
		return finalized
	}

	isSpeech, trimmed := s.vadTrimAndDetect(s.buf.samples)
	if !s.buf.hasStarted {
		drop := len(s.buf.samples) - len(trimmed)
		if drop > 0 {
			s.buf.trimPrefix(drop)
		}
	}

	if isSpeech {
		if !s.buf.hasStarted {
			s.buf.startedTS = captureTS
			s.buf.hasStarted = true
		}
		s.buf.lastSpeechTS = captureTS
		s.buf.hasSpeech = true

		if s.buf.hasStarted && (captureTS-s.buf.startedTS) >= s.cfg.MaxSegmentSeconds {
			if seg, ok := s.flush(true, captureTS); ok {
				finalized = append(finalized, seg)
			}
		}
	} else if s.buf.hasSpeech {
		gap := captureTS - s.buf.lastSpeechTS
		if gap >= s.cfg.SilenceGapSeconds {
			if seg, ok := s.flush(false, s.buf.lastSpeechTS); ok {
				finalized = append(finalized, seg)
			}
		}
	}

	return finalized
}

// CollectReady finalizes the in-progress segment if it has gone quiet for
// longer than the configured silence gap, as judged against now (unix
// seconds) rather than the arrival of a new chunk. This is what lets a
// user's final segment flush out even if no further audio ever arrives.
func (s *Segmenter) CollectReady(now float64) []Segment {
	if !s.buf.hasSpeech || !s.buf.hasStarted {
		return nil
	}
	gap := now - s.buf.lastSpeechTS
	if gap >= s.cfg.SilenceGapSeconds {
		if seg, ok := s.flush(false, s.buf.lastSpeechTS); ok {
			return []Segment{seg}
		}
		return nil
	}
	if now-s.buf.startedTS >= s.cfg.MaxSegmentSeconds {
		endTS := s.buf.startedTS
		if s.buf.hasCapture {
			endTS = s.buf.lastCaptureTS
		}
		if seg, ok := s.flush(true, endTS); ok {
			return []Segment{seg}
		}
	}
	return nil
}

// Flush force-finalizes whatever is currently buffered, if speech has
// started, ending the segment at the last capture timestamp and ignoring
// the minimum segment length.
func (s *Segmenter) Flush() []Segment {
	if len(s.buf.samples) == 0 || !s.buf.hasCapture {
		return nil
	}
	if seg, ok := s.flush(true, s.buf.lastCaptureTS); ok {
		return []Segment{seg}
	}
	return nil
}

func (s *Segmenter) flush(force bool, endTS float64) (Segment, bool) {
	if len(s.buf.samples) == 0 || !s.buf.hasStarted {
		s.buf = bufferState{}
		return Segment{}, false
	}

	durationS := float64(len(s.buf.samples)) / float64(SampleRate)
	if !force && durationS < s.cfg.MinSegmentSeconds {
		s.buf = bufferState{}
		return Segment{}, false
	}

	pcm := s.buf.samples
	startTS := s.buf.startedTS
	prompt := s.buf.prompt
	s.buf = bufferState{}
	s.prober.Reset()

	return Segment{PCM: pcm, StartTS: startTS, EndTS: endTS, Prompt: prompt}, true
}

// vadTrimAndDetect runs Analyze over the buffered samples and returns
// whether the tail window is speech, plus the buffer trimmed of any
// leading silence Analyze suggests dropping. If there aren't enough
// samples for one frame, it reports no speech and returns the buffer
// unmodified.
func (s *Segmenter) vadTrimAndDetect(samples []int16) (bool, []int16) {
	drop, maxP, err := vad.Analyze(s.prober, samples, s.cfg.VADWindowSeconds, s.cfg.VADThreshold, s.cfg.KeepContextMs, s.cfg.MinConsecutive)
	if err != nil {
		return false, samples
	}
	trimmed := samples
	if drop > 0 && drop < len(samples) {
		trimmed = samples[drop:]
	}
	return maxP >= s.cfg.VADThreshold, trimmed
}
