// Package wire defines the JSON-framed WebSocket message types exchanged
// between the capture client and the segment orchestrator.
package wire

import (
	"encoding/json"
	"fmt"
)

// ProtoVersion is the only wire protocol version this module speaks.
const ProtoVersion = 1

// Error codes, matching exactly what the orchestrator reports back on the
// wire — never invent a new one inline, add it here.
const (
	CodeBadJSON           = "bad_json"
	CodeBadRequest         = "bad_request"
	CodeBadAudioFormat     = "bad_audio_format"
	CodeUnsupportedFrame   = "unsupported_frame"
	CodeUnknownType        = "unknown_type"
	CodeMissingAPIKey      = "missing_api_key"
	CodeServerConfig       = "server_config"
	CodeLLMError           = "llm_error"
)

// PCMFormat describes the encoding of an inbound audio.chunk payload.
type PCMFormat struct {
	SampleRate int `json:"sr"`
	Channels   int `json:"channels"`
	Width      int `json:"sample_width"`
}

// AudioChunkMessage is a single inbound audio.chunk frame.
type AudioChunkMessage struct {
	V         int       `json:"v"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Index     uint64    `json:"index"`
	Format    PCMFormat `json:"pcm_format"`
	StartedTS float64   `json:"started_ts"`
	CaptureTS float64   `json:"capture_ts"`
	DataB64   string    `json:"data_b64"`
	Prompt    string    `json:"prompt"`
}

// LogEntry is one turn of a session transcript, as supplied by the client
// for a wrapup.request.
type LogEntry struct {
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	Text     string  `json:"text"`
	StartTS  float64 `json:"start_ts"`
	EndTS    float64 `json:"end_ts"`
}

// WrapupRequestMessage asks the orchestrator to generate a session summary.
type WrapupRequestMessage struct {
	V           int        `json:"v"`
	Type        string     `json:"type"`
	RequestID   string     `json:"request_id"`
	SessionName string     `json:"session_name"`
	LogEntries  []LogEntry `json:"log_entries"`
}

// TranscriptionMessage is an outbound transcription result for one emitted
// speech segment.
type TranscriptionMessage struct {
	V         int     `json:"v"`
	Type      string  `json:"type"`
	UserID    string  `json:"user_id"`
	Text      string  `json:"text"`
	CaptureTS float64 `json:"capture_ts"`
	EndTS     float64 `json:"end_ts"`
}

// WrapupResponseMessage is the generated summary for a wrapup.request.
type WrapupResponseMessage struct {
	V         int    `json:"v"`
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Outline   string `json:"outline"`
}

// ErrorMessage reports a recoverable protocol or request error to the peer.
type ErrorMessage struct {
	V       int    `json:"v"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewTranscription builds a TranscriptionMessage with the version and type
// fields already populated.
func NewTranscription(userID, text string, captureTS, endTS float64) TranscriptionMessage {
	return TranscriptionMessage{V: ProtoVersion, Type: "transcription", UserID: userID, Text: text, CaptureTS: captureTS, EndTS: endTS}
}

// NewWrapupResponse builds a WrapupResponseMessage with the version and type
// fields already populated.
func NewWrapupResponse(requestID, outline string) WrapupResponseMessage {
	return WrapupResponseMessage{V: ProtoVersion, Type: "wrapup.response", RequestID: requestID, Outline: outline}
}

// NewError builds an ErrorMessage with the version and type fields already
// populated.
func NewError(code, message string) ErrorMessage {
	return ErrorMessage{V: ProtoVersion, Type: "error", Code: code, Message: message}
}

// DecodeError carries the wire error code the caller should report back to
// the peer alongside the underlying cause.
type DecodeError struct {
	Code string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Sniff parses raw as a generic JSON value and, if it's an object, returns
// its "type" discriminator. It returns a *DecodeError with CodeBadJSON when
// raw isn't valid JSON, and CodeBadRequest when it's valid JSON but not an
// object.
func Sniff(raw []byte) (msgType string, err error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &DecodeError{Code: CodeBadJSON, Err: err}
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return "", &DecodeError{Code: CodeBadRequest, Err: fmt.Errorf("payload must be a JSON object")}
	}
	t, _ := obj["type"].(string)
	return t, nil
}
