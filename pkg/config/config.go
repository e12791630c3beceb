// Package config loads the runtime configuration for the segment
// orchestrator from environment variables.
package config

import "time"

// Default values, mirroring the knobs a deployed instance tunes most often.
const (
	DefaultListenHost = "0.0.0.0"
	DefaultListenPort = 8771

	DefaultWhisperModel              = "ggml-small.en.bin"
	DefaultWhisperLogprobThreshold   = -1.0
	DefaultWhisperNoSpeechThreshold  = 0.2
	DefaultWhisperCompressionRatio   = 1.35
	DefaultWhisperMaxSingleWordRepeat = 4

	DefaultSilenceGapSeconds = 0.8
	DefaultVADThreshold      = 0.5
	DefaultMaxSegmentSeconds = 25.0
	DefaultMinSegmentSeconds = 0.2
	DefaultKeepContextMs     = 96
	DefaultMinConsecutive    = 3

	DefaultQueueSize      = 64
	DefaultFlushInterval  = 250 * time.Millisecond
	DefaultMaxFrameBytes  = 10 << 20 // 10 MiB
)

// WhisperConfig configures the ASR worker's decoding behavior.
type WhisperConfig struct {
	Model                 string
	LogprobThreshold      float64
	NoSpeechThreshold     float64
	CompressionRatio      float64
	MaxSingleWordRepeats  int
	DropRepeatedOnly      bool
	Prompt                string
}

// VoiceConfig configures the per-user segmenter and VAD engine.
type VoiceConfig struct {
	SilenceGapSeconds float64
	VADThreshold      float64
	MaxSegmentSeconds float64
	MinSegmentSeconds float64
	KeepContextMs     int
	MinConsecutive    int
}

// NetConfig configures the WebSocket listener.
type NetConfig struct {
	Host         string
	Port         int
	MaxFrameSize int64
	MetricsAddr  string // empty disables the /metrics endpoint
}

// WrapupConfig configures the pkg/summary client used for wrapup.request.
type WrapupConfig struct {
	Model           string
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// Config is the fully resolved application configuration.
type Config struct {
	Device  string // "cuda", "mps", "cpu", or "auto"
	Whisper WhisperConfig
	Voice   VoiceConfig
	Net     NetConfig
	Wrapup  WrapupConfig

	SummaryAPIKey string
}

// Default returns the configuration an instance starts from before any
// environment overrides are applied.
func Default() Config {
	return Config{
		Device: "auto",
		Whisper: WhisperConfig{
			Model:                DefaultWhisperModel,
			LogprobThreshold:     DefaultWhisperLogprobThreshold,
			NoSpeechThreshold:    DefaultWhisperNoSpeechThreshold,
			CompressionRatio:     DefaultWhisperCompressionRatio,
			MaxSingleWordRepeats: DefaultWhisperMaxSingleWordRepeat,
			DropRepeatedOnly:     true,
		},
		Voice: VoiceConfig{
			SilenceGapSeconds: DefaultSilenceGapSeconds,
			VADThreshold:      DefaultVADThreshold,
			MaxSegmentSeconds: DefaultMaxSegmentSeconds,
			MinSegmentSeconds: DefaultMinSegmentSeconds,
			KeepContextMs:     DefaultKeepContextMs,
			MinConsecutive:    DefaultMinConsecutive,
		},
		Net: NetConfig{
			Host:         DefaultListenHost,
			Port:         DefaultListenPort,
			MaxFrameSize: DefaultMaxFrameBytes,
		},
		Wrapup: WrapupConfig{
			Model:           "gemini-1.5-flash",
			Temperature:     0.05,
			MaxOutputTokens: 10240,
		},
	}
}
