// Package asr runs a bounded, single-consumer transcription queue against a
// Whisper-family model provider, applying prompt caching and repetition
// suppression to its output.
package asr

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/voxseg/segcore/pkg/logging"
)

// QueueSize is the fixed capacity of the job queue. A job submitted while
// the queue is full is dropped rather than blocking the caller.
const QueueSize = 64

// DecodeParams are the Whisper decoding parameters every job is run with.
type DecodeParams struct {
	Temperatures          []float64
	LogprobThreshold      float64
	NoSpeechThreshold     float64
	CompressionRatio      float64
	ConditionOnPrevTokens bool
	ForceEnglish          bool
	MaxSingleWordRepeats  int
	DropRepeatedOnly      bool
}

// DefaultDecodeParams mirrors the decode parameters this module's source
// system used.
func DefaultDecodeParams() DecodeParams {
	return DecodeParams{
		Temperatures:          []float64{0.0, 0.25, 0.5, 0.75},
		LogprobThreshold:      -1.0,
		NoSpeechThreshold:     0.2,
		CompressionRatio:      1.35,
		ConditionOnPrevTokens: true,
		ForceEnglish:          true,
		MaxSingleWordRepeats:  4,
		DropRepeatedOnly:      true,
	}
}

// Job is one unit of transcription work: a finalized, enhanced speech
// segment's PCM samples plus an optional per-job prompt override.
type Job struct {
	ID     string
	PCM    []int16 // mono 16kHz
	Prompt string
}

// Result is the text produced for a Job, correlated back to it by ID.
type Result struct {
	ID   string
	Text string
}

// Provider runs Whisper-family inference over decoded audio. Implementations
// (whispercpp, groqwhisper) own model/session lifecycle.
type Provider interface {
	Transcribe(ctx context.Context, samples []int16, prompt string, params DecodeParams) (string, error)
	Close() error
}

// Worker owns the bounded job queue and the single goroutine that drains it.
type Worker struct {
	provider Provider
	params   DecodeParams
	log      logging.Logger

	queue chan Job

	emit    func(Result)
	onFatal func(error)

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Worker. Call Start to begin draining the queue.
func New(provider Provider, params DecodeParams, log logging.Logger) *Worker {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Worker{
		provider: provider,
		params:   params,
		log:      log,
		queue:    make(chan Job, QueueSize),
		done:     make(chan struct{}),
	}
}

// SetEmitCallback registers the callback invoked with each transcription
// result. Must be called before Start.
func (w *Worker) SetEmitCallback(cb func(Result)) { w.emit = cb }

// SetOnFatal registers a callback invoked when the provider returns an error.
// The worker goroutine exits after invoking it — the orchestrator is
// expected to treat this as a shutdown signal.
func (w *Worker) SetOnFatal(cb func(error)) { w.onFatal = cb }

// Submit enqueues a job for transcription. If the queue is full, the job is
// dropped and Submit returns false — the caller does not block.
func (w *Worker) Submit(job Job) bool {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	select {
	case w.queue <- job:
		return true
	default:
		w.log.Warn("asr queue full, dropping job", "job_id", job.ID, "queue_size", QueueSize)
		return false
	}
}

// Start begins draining the queue on a new goroutine. It returns
// immediately.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop signals the worker goroutine to exit after its current job, if any.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// run drains the queue until the context is cancelled, Stop is called, or a
// job fails — a provider error is treated as fatal to the whole worker, not
// just the one job, since it usually signals the underlying model/session
// is no longer usable.
func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case job := <-w.queue:
			if !w.process(ctx, job) {
				return
			}
		}
	}
}

// process runs one job to completion and returns false if the worker
// should stop (a fatal provider error occurred).
func (w *Worker) process(ctx context.Context, job Job) bool {
	if len(job.PCM) == 0 {
		w.log.Warn("asr job has empty pcm, skipping", "job_id", job.ID)
		return true
	}

	text, err := w.provider.Transcribe(ctx, job.PCM, job.Prompt, w.params)
	if err != nil {
		w.log.Error("asr transcription failed", "job_id", job.ID, "error", err)
		if w.onFatal != nil {
			w.onFatal(fmt.Errorf("asr: job %s: %w", job.ID, err))
		}
		return false
	}

	if text == "" {
		return true
	}

	text = suppressRepetition(text, w.params.MaxSingleWordRepeats, w.params.DropRepeatedOnly)
	if text == "" {
		return true
	}

	if w.emit != nil {
		w.emit(Result{ID: job.ID, Text: text})
	}
	return true
}
