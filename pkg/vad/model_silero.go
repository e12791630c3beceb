//go:build silero

package vad

import (
	_ "embed"
)

// sileroModelData embeds the Silero VAD v5 ONNX model at build time.
//
// BUILD REQUIREMENT: pkg/vad/silero_vad.onnx must exist before compiling
// with -tags silero; the file is not part of this repository. Place it
// there, then build with `go build -tags silero ./...`.
//
//go:embed silero_vad.onnx
var sileroModelData []byte
