// Package whispercpp runs ASR inference natively in-process via whisper.cpp
// CGO bindings, eliminating HTTP round trips for the common case of a
// single colocated model.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/voxseg/segcore/pkg/asr"
)

// Provider implements asr.Provider using a whisper.cpp model loaded once
// and shared across jobs; each job gets its own Context since whisper.cpp
// contexts are not safe for concurrent use.
type Provider struct {
	model       whisperlib.Model
	language    string
	promptCache *asr.PromptCache
}

// New loads a whisper.cpp model from modelPath. language is the language
// code (e.g. "en") set on each job's context when params.ForceEnglish is
// off.
func New(modelPath, language string) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whispercpp: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: load model %q: %w", modelPath, err)
	}
	return &Provider{
		model:       model,
		language:    language,
		promptCache: asr.NewPromptCache(asr.DefaultPromptCacheSize),
	}, nil
}

// Close releases the underlying whisper.cpp model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe decodes samples through a fresh whisper.cpp context configured
// with params' decode thresholds, prompt injection (tokenized once per
// distinct prompt text via the shared PromptCache), and the language forced
// to English whenever params.ForceEnglish is set, whatever the model.
func (p *Provider) Transcribe(ctx context.Context, samples []int16, prompt string, params asr.DecodeParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whispercpp: context already cancelled: %w", err)
	}
	if len(samples) == 0 {
		return "", errors.New("whispercpp: empty sample buffer")
	}

	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whispercpp: create context: %w", err)
	}

	lang := p.language
	if params.ForceEnglish {
		lang = "en"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("whispercpp: set language: %w", err)
	}

	wctx.SetTemperature(float32(firstOr(params.Temperatures, 0.0)))
	wctx.SetTemperatureFallback(toFloat32Slice(params.Temperatures))
	wctx.SetLogprobThreshold(float32(params.LogprobThreshold))
	wctx.SetNoSpeechThreshold(float32(params.NoSpeechThreshold))
	wctx.SetCompressionRatioThreshold(float32(params.CompressionRatio))
	wctx.SetConditionOnPreviousText(params.ConditionOnPrevTokens)

	if prompt != "" {
		ids, err := p.promptCache.Tokenize(prompt, func(text string) ([]int32, error) {
			return wctx.TokenizeText(text)
		})
		if err != nil {
			return "", fmt.Errorf("whispercpp: tokenize prompt: %w", err)
		}
		wctx.SetInitialPrompt(ids)
	}

	floatSamples := pcmToFloat32(samples)
	if err := wctx.Process(floatSamples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whispercpp: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whispercpp: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

func pcmToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

func firstOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}

func toFloat32Slice(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
