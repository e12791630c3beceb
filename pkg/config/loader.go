package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Loader loads Config from environment variables. Tests override Lookup to
// inject a deterministic map instead of touching the real environment.
type Loader struct {
	Lookup func(string) (string, bool)
}

// Load resolves a Config, starting from Default() and applying every
// recognized environment variable on top.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}

	cfg := Default()

	overrideString(l.Lookup, "DEVICE", &cfg.Device)

	overrideString(l.Lookup, "WHISPER_MODEL", &cfg.Whisper.Model)
	overrideString(l.Lookup, "WHISPER_PROMPT", &cfg.Whisper.Prompt)
	if err := overrideFloat(l.Lookup, "WHISPER_LOGPROB_THRESHOLD", &cfg.Whisper.LogprobThreshold); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(l.Lookup, "WHISPER_NO_SPEECH_THRESHOLD", &cfg.Whisper.NoSpeechThreshold); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "WHISPER_MAX_SINGLE_WORD_REPEATS", &cfg.Whisper.MaxSingleWordRepeats); err != nil {
		return Config{}, err
	}
	if err := overrideBool(l.Lookup, "WHISPER_DROP_REPEATED_ONLY", &cfg.Whisper.DropRepeatedOnly); err != nil {
		return Config{}, err
	}

	if err := overrideFloat(l.Lookup, "VOICE_SILENCE_GAP_SECONDS", &cfg.Voice.SilenceGapSeconds); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(l.Lookup, "VOICE_VAD_THRESHOLD", &cfg.Voice.VADThreshold); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(l.Lookup, "VOICE_MAX_SEGMENT_SECONDS", &cfg.Voice.MaxSegmentSeconds); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(l.Lookup, "VOICE_MIN_SEGMENT_SECONDS", &cfg.Voice.MinSegmentSeconds); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "VOICE_KEEP_CONTEXT_MS", &cfg.Voice.KeepContextMs); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "VOICE_MIN_CONSECUTIVE", &cfg.Voice.MinConsecutive); err != nil {
		return Config{}, err
	}

	overrideString(l.Lookup, "NET_HOST", &cfg.Net.Host)
	if err := overrideInt(l.Lookup, "NET_PORT", &cfg.Net.Port); err != nil {
		return Config{}, err
	}
	if err := overrideInt64(l.Lookup, "NET_MAX_FRAME_SIZE", &cfg.Net.MaxFrameSize); err != nil {
		return Config{}, err
	}
	overrideString(l.Lookup, "NET_METRICS_ADDR", &cfg.Net.MetricsAddr)

	overrideString(l.Lookup, "WRAPUP_MODEL", &cfg.Wrapup.Model)
	overrideString(l.Lookup, "WRAPUP_PROMPT", &cfg.Wrapup.Prompt)
	if err := overrideFloat(l.Lookup, "WRAPUP_TEMPERATURE", &cfg.Wrapup.Temperature); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "WRAPUP_MAX_OUTPUT_TOKENS", &cfg.Wrapup.MaxOutputTokens); err != nil {
		return Config{}, err
	}

	overrideString(l.Lookup, "SUMMARY_API_KEY", &cfg.SummaryAPIKey)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Net.Port <= 0 || cfg.Net.Port > 65535 {
		return fmt.Errorf("config: invalid NET_PORT %d", cfg.Net.Port)
	}
	if cfg.Voice.VADThreshold <= 0 || cfg.Voice.VADThreshold > 1 {
		return fmt.Errorf("config: VOICE_VAD_THRESHOLD must be in (0,1], got %f", cfg.Voice.VADThreshold)
	}
	if cfg.Voice.SilenceGapSeconds <= 0 {
		return fmt.Errorf("config: VOICE_SILENCE_GAP_SECONDS must be > 0")
	}
	if cfg.Voice.MaxSegmentSeconds <= 0 {
		return fmt.Errorf("config: VOICE_MAX_SEGMENT_SECONDS must be > 0")
	}
	return nil
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt64(lookup func(string) (string, bool), key string, target *int64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}
