package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RequestError carries a wire-reportable error code alongside a
// human-readable message, mirroring the distinction the client needs
// between e.g. a missing API key and a transient provider failure.
type RequestError struct {
	Code    string
	Message string
}

func (e *RequestError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Generator produces a markdown outline for a formatted transcript.
type Generator interface {
	Generate(ctx context.Context, transcript string, tips []string) (string, error)
}

// GeminiGenerator calls the Gemini generateContent REST endpoint to turn a
// transcript into a markdown outline.
type GeminiGenerator struct {
	apiKey          string
	model           string
	prompt          string
	temperature     float64
	maxOutputTokens int
	url             string
	client          *http.Client
}

const defaultGeminiURLTemplate = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// NewGeminiGenerator creates a Generator bound to apiKey and model. prompt is
// prepended as system guidance ahead of the transcript body.
func NewGeminiGenerator(apiKey, model, prompt string, temperature float64, maxOutputTokens int) *GeminiGenerator {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiGenerator{
		apiKey:          apiKey,
		model:           model,
		prompt:          prompt,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		url:             fmt.Sprintf(defaultGeminiURLTemplate, model),
		client:          http.DefaultClient,
	}
}

// Generate sends transcript (plus any tips, appended as bullet guidance) to
// Gemini and returns the generated outline text.
func (g *GeminiGenerator) Generate(ctx context.Context, transcript string, tips []string) (string, error) {
	var promptBuilder strings.Builder
	if g.prompt != "" {
		promptBuilder.WriteString(g.prompt)
		promptBuilder.WriteString("\n\n")
	}
	if len(tips) > 0 {
		promptBuilder.WriteString("Tips:\n")
		for _, t := range tips {
			promptBuilder.WriteString("- ")
			promptBuilder.WriteString(t)
			promptBuilder.WriteString("\n")
		}
		promptBuilder.WriteString("\n")
	}
	promptBuilder.WriteString(transcript)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{{"text": promptBuilder.String()}},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     g.temperature,
			"maxOutputTokens": g.maxOutputTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &RequestError{Code: "llm_error", Message: err.Error()}
	}

	url := g.url + "?key=" + g.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &RequestError{Code: "llm_error", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &RequestError{Code: "llm_error", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return "", &RequestError{Code: "llm_error", Message: fmt.Sprintf("status %d: %v", resp.StatusCode, errBody)}
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &RequestError{Code: "llm_error", Message: err.Error()}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
