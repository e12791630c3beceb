package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateTranscript_FormatsTurns(t *testing.T) {
	entries := []Entry{
		{UserName: "alice", Text: "hello there", StartTS: 0},
		{UserName: "bob", Text: "hi alice", StartTS: 60},
	}
	out := GenerateTranscript(entries, "standup")
	if !strings.Contains(out, "Transcript for session: standup") {
		t.Errorf("expected header, got %q", out)
	}
	if !strings.Contains(out, "alice: hello there") {
		t.Errorf("expected alice's line, got %q", out)
	}
	if !strings.Contains(out, "bob: hi alice") {
		t.Errorf("expected bob's line, got %q", out)
	}
}

func TestGeminiGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"parts": []map[string]string{{"text": "## Summary\n- did things"}},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	g := NewGeminiGenerator("test-key", "gemini-1.5-flash", "Summarize:", 0.3, 512)
	g.url = server.URL

	out, err := g.Generate(context.Background(), "transcript body", []string{"be concise"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "## Summary\n- did things" {
		t.Errorf("unexpected outline: %q", out)
	}
}

func TestGeminiGenerator_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewGeminiGenerator("test-key", "", "", 0, 0)
	g.url = server.URL

	_, err := g.Generate(context.Background(), "body", nil)
	if err == nil {
		t.Fatal("expected error on non-200 status")
	}
	reqErr, ok := err.(*RequestError)
	if !ok {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if reqErr.Code != "llm_error" {
		t.Errorf("expected llm_error code, got %q", reqErr.Code)
	}
}
