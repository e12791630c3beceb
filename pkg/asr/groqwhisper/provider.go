// Package groqwhisper calls a hosted Whisper-compatible transcription API
// over HTTP multipart, for deployments without a local model.
package groqwhisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/voxseg/segcore/pkg/asr"
	"github.com/voxseg/segcore/pkg/audio"
)

const defaultURL = "https://api.groq.com/openai/v1/audio/transcriptions"

// Provider implements asr.Provider against a Groq-compatible audio
// transcription endpoint.
type Provider struct {
	apiKey     string
	model      string
	url        string
	client     *http.Client
	sampleRate int
}

// New creates a Provider. model defaults to "whisper-large-v3-turbo" if
// empty. sampleRate is the rate the WAV envelope declares; samples handed
// to Transcribe are expected to already be at this rate.
func New(apiKey, model string, sampleRate int) *Provider {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Provider{
		apiKey:     apiKey,
		model:      model,
		url:        defaultURL,
		client:     http.DefaultClient,
		sampleRate: sampleRate,
	}
}

// Close is a no-op; the provider holds no resources beyond an HTTP client.
func (p *Provider) Close() error { return nil }

// Transcribe wraps samples in a WAV envelope and posts it as multipart form
// data, forwarding the decode temperature (the API accepts only a single
// value, so the first entry of params.Temperatures is used) and a forced
// "en" language when params.ForceEnglish is set.
func (p *Provider) Transcribe(ctx context.Context, samples []int16, prompt string, params asr.DecodeParams) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("groqwhisper: empty sample buffer")
	}

	wav := audio.NewWavBuffer(int16ToBytes(samples), p.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", p.model); err != nil {
		return "", err
	}
	if params.ForceEnglish {
		if err := writer.WriteField("language", "en"); err != nil {
			return "", err
		}
	}
	if prompt != "" {
		if err := writer.WriteField("prompt", prompt); err != nil {
			return "", err
		}
	}
	if len(params.Temperatures) > 0 {
		if err := writer.WriteField("temperature", strconv.FormatFloat(params.Temperatures[0], 'f', -1, 64)); err != nil {
			return "", err
		}
	}

	part, err := writer.CreateFormFile("file", "segment.wav")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, bytes.NewReader(wav)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groqwhisper: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return "", fmt.Errorf("groqwhisper: status %d: %v", resp.StatusCode, errBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("groqwhisper: decode response: %w", err)
	}
	return result.Text, nil
}

func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

