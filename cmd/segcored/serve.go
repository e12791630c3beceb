package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voxseg/segcore/pkg/asr"
	"github.com/voxseg/segcore/pkg/asr/groqwhisper"
	"github.com/voxseg/segcore/pkg/asr/whispercpp"
	"github.com/voxseg/segcore/pkg/config"
	"github.com/voxseg/segcore/pkg/logging"
	"github.com/voxseg/segcore/pkg/orchestrator"
	"github.com/voxseg/segcore/pkg/segmenter"
	"github.com/voxseg/segcore/pkg/summary"
	"github.com/voxseg/segcore/pkg/vad"
)

func newServeCmd() *cobra.Command {
	var envFile string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the WebSocket segmentation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: no .env file loaded, using process environment")
			}
			return runServe(logLevel)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to a .env file to load before startup")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runServe(logLevel string) error {
	log := logging.New(logLevel)

	cfg, err := config.Loader{}.Load()
	if err != nil {
		return fmt.Errorf("segcored: load config: %w", err)
	}

	device := resolveDevice(cfg.Device)
	log.Info("resolved compute device", "requested", cfg.Device, "resolved", device)

	provider, err := buildASRProvider(cfg)
	if err != nil {
		return fmt.Errorf("segcored: build asr provider: %w", err)
	}
	defer provider.Close()

	decodeParams := asr.DefaultDecodeParams()
	decodeParams.LogprobThreshold = cfg.Whisper.LogprobThreshold
	decodeParams.NoSpeechThreshold = cfg.Whisper.NoSpeechThreshold
	decodeParams.CompressionRatio = cfg.Whisper.CompressionRatio
	decodeParams.MaxSingleWordRepeats = cfg.Whisper.MaxSingleWordRepeats
	decodeParams.DropRepeatedOnly = cfg.Whisper.DropRepeatedOnly

	worker := asr.New(provider, decodeParams, log)
	worker.SetOnFatal(func(err error) {
		log.Error("asr worker exited fatally, shutting down", "error", err)
		os.Exit(1)
	})

	segCfg := segmenter.Config{
		SilenceGapSeconds: cfg.Voice.SilenceGapSeconds,
		MaxSegmentSeconds: cfg.Voice.MaxSegmentSeconds,
		MinSegmentSeconds: cfg.Voice.MinSegmentSeconds,
		VADThreshold:      cfg.Voice.VADThreshold,
		VADWindowSeconds:  0.2,
		KeepContextMs:     cfg.Voice.KeepContextMs,
		MinConsecutive:    cfg.Voice.MinConsecutive,
	}

	proberFactory := buildProberFactory()

	var summaryGen summary.Generator
	if cfg.SummaryAPIKey != "" {
		summaryGen = summary.NewGeminiGenerator(cfg.SummaryAPIKey, cfg.Wrapup.Model, cfg.Wrapup.Prompt, cfg.Wrapup.Temperature, cfg.Wrapup.MaxOutputTokens)
	} else {
		log.Warn("no SUMMARY_API_KEY configured, wrapup.request will fail with missing_api_key")
	}

	orchCfg := orchestrator.Config{
		Host:          cfg.Net.Host,
		Port:          cfg.Net.Port,
		MaxFrameBytes: int(cfg.Net.MaxFrameSize),
		FlushInterval: 0.25,
		MetricsAddr:   cfg.Net.MetricsAddr,
	}

	srv, err := orchestrator.New(orchCfg, segCfg, proberFactory, worker, summaryGen, orchestrator.SummaryConfig{}, log)
	if err != nil {
		return fmt.Errorf("segcored: construct server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting segcored", "host", cfg.Net.Host, "port", cfg.Net.Port)
	if err := srv.Serve(ctx); err != nil && err != orchestrator.ErrServerClosed {
		return fmt.Errorf("segcored: serve: %w", err)
	}
	return nil
}

// buildASRProvider picks the hosted Groq HTTP provider when
// STT_PROVIDER=groq, returning an error if GROQ_API_KEY is not set, and
// whispercpp (native, in-process) for any other STT_PROVIDER value.
func buildASRProvider(cfg config.Config) (asr.Provider, error) {
	providerName := os.Getenv("STT_PROVIDER")
	if providerName == "" {
		providerName = "whispercpp"
	}

	switch providerName {
	case "groq":
		apiKey := os.Getenv("GROQ_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY must be set for STT_PROVIDER=groq")
		}
		return groqwhisper.New(apiKey, cfg.Whisper.Model, 16000), nil
	case "whispercpp":
		fallthrough
	default:
		return whispercpp.New(cfg.Whisper.Model, "en")
	}
}

// buildProberFactory wires the Silero VAD engine when the binary was built
// with the "silero" tag and a model library is available, falling back to
// the dependency-free RMS engine otherwise.
func buildProberFactory() orchestrator.ProberFactory {
	if !vad.SileroAvailable() {
		return func() vad.FrameProber { return vad.NewRMSEngine() }
	}
	libPath := os.Getenv("ONNXRUNTIME_LIB_PATH")
	return func() vad.FrameProber {
		engine, err := vad.NewSileroEngine(libPath)
		if err != nil {
			return vad.NewRMSEngine()
		}
		return engine
	}
}

// resolveDevice falls back CUDA -> Metal/MPS -> CPU when the configured
// device is "auto"; a concrete setting is returned unchanged.
func resolveDevice(requested string) string {
	if requested != "auto" {
		return requested
	}
	if os.Getenv("CUDA_VISIBLE_DEVICES") != "" {
		return "cuda"
	}
	if os.Getenv("SEGCORE_FORCE_MPS") != "" {
		return "mps"
	}
	return "cpu"
}
