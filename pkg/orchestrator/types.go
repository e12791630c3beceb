// Package orchestrator accepts WebSocket connections, routes incoming audio
// through a per-user segmenter and speech enhancer, dispatches finalized
// segments to the ASR worker, and relays transcription and wrapup results
// back to the client.
package orchestrator

import "github.com/voxseg/segcore/pkg/logging"

// Logger is the narrow structured-logging surface this package depends on.
type Logger = logging.Logger

// NoOpLogger discards everything. Useful as a default in tests.
type NoOpLogger = logging.NoOpLogger

// JobMeta correlates an in-flight ASR job back to the user and segment
// timestamps it was generated from, so a result arriving asynchronously on
// the worker's emit callback is broadcast with the right user_id,
// capture_ts and end_ts.
type JobMeta struct {
	UserID    string
	StartTS   float64
	EndTS     float64
	Submitted float64
}

// Config bundles the tunables the server needs at construction time,
// independent of per-user segmenter/decode configuration (those live in
// pkg/segmenter.Config and pkg/asr.DecodeParams).
type Config struct {
	Host          string
	Port          int
	MaxFrameBytes int
	FlushInterval float64 // seconds
	MetricsAddr   string
}

// DefaultConfig mirrors pkg/config.Config's net defaults for standalone use
// (e.g. in tests) without pulling in the full config loader.
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8771,
		MaxFrameBytes: 10 << 20,
		FlushInterval: 0.25,
		MetricsAddr:   "",
	}
}
