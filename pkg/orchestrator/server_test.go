package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/voxseg/segcore/pkg/asr"
	"github.com/voxseg/segcore/pkg/segmenter"
	"github.com/voxseg/segcore/pkg/vad"
	"github.com/voxseg/segcore/pkg/wire"
)

type fakeASRProvider struct {
	mu   sync.Mutex
	text string
}

func (p *fakeASRProvider) Transcribe(ctx context.Context, samples []int16, prompt string, params asr.DecodeParams) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, nil
}

func (p *fakeASRProvider) Close() error { return nil }

type alwaysVoiceProber struct{}

func (alwaysVoiceProber) Probability(frame []int16) (float64, error) { return 0.9, nil }
func (alwaysVoiceProber) Reset()                                     {}
func (alwaysVoiceProber) Close() error                                { return nil }

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	provider := &fakeASRProvider{text: "hello from the test"}
	worker := asr.New(provider, asr.DefaultDecodeParams(), nil)

	segCfg := segmenter.DefaultConfig()
	segCfg.MinSegmentSeconds = 0

	srv, err := New(DefaultConfig(), segCfg, func() vad.FrameProber { return alwaysVoiceProber{} }, worker, nil, SummaryConfig{}, nil)
	if err != nil {
		t.Fatalf("unexpected error constructing server: %v", err)
	}

	httpSrv := httptest.NewServer(http.HandlerFunc(srv.handleWS))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		httpSrv.Close()
	})

	worker.Start(ctx)
	go srv.run(ctx)

	return srv, httpSrv
}

func TestServer_AudioChunkProducesTranscription(t *testing.T) {
	_, httpSrv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// 3200 samples (0.2s @ 16kHz) so the segmenter's VAD window requirement
	// is met on the very first chunk.
	pcmBytes := make([]byte, 6400)
	for i := 0; i < len(pcmBytes); i += 2 {
		pcmBytes[i] = 0x10
		pcmBytes[i+1] = 0x20
	}

	chunk := wire.AudioChunkMessage{
		V:       1,
		Type:    "audio.chunk",
		UserID:  "user-1",
		Format:  wire.PCMFormat{SampleRate: 16000, Channels: 1, Width: 2},
		DataB64: base64.StdEncoding.EncodeToString(pcmBytes),
	}
	payload, _ := json.Marshal(chunk)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// Give the flusher a couple of ticks to finalize on silence, then expect
	// a transcription message broadcast back.
	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for {
		_, msg, err := conn.Read(readCtx)
		if err != nil {
			t.Fatalf("read failed waiting for transcription: %v", err)
		}
		var probe struct {
			Type string `json:"type"`
		}
		json.Unmarshal(msg, &probe)
		if probe.Type == "transcription" {
			var tr wire.TranscriptionMessage
			json.Unmarshal(msg, &tr)
			if tr.Text != "hello from the test" {
				t.Errorf("unexpected transcription text: %q", tr.Text)
			}
			return
		}
	}
}

func TestServer_UnknownMessageTypeEmitsError(t *testing.T) {
	_, httpSrv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	payload := []byte(`{"type":"something.else"}`)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, msg, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var errMsg wire.ErrorMessage
	if err := json.Unmarshal(msg, &errMsg); err != nil {
		t.Fatalf("failed to unmarshal error message: %v", err)
	}
	if errMsg.Code != wire.CodeUnknownType {
		t.Errorf("expected unknown_type code, got %q", errMsg.Code)
	}
}

func TestServer_WrapupWithoutGeneratorReturnsMissingAPIKey(t *testing.T) {
	_, httpSrv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	req := wire.WrapupRequestMessage{V: 1, Type: "wrapup.request", RequestID: "r1", SessionName: "s"}
	payload, _ := json.Marshal(req)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, msg, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var errMsg wire.ErrorMessage
	json.Unmarshal(msg, &errMsg)
	if errMsg.Code != wire.CodeMissingAPIKey {
		t.Errorf("expected missing_api_key, got %q: %s", errMsg.Code, errMsg.Message)
	}
}
