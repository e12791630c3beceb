//go:build silero

package vad

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// sileroStateSize is the hidden state dimension per layer. Silero VAD v5
// uses a combined state tensor of shape [2, 1, 128].
const sileroStateSize = 128

// ortInitOnce ensures the ONNX Runtime environment is initialized exactly
// once per process; ortInitErr is cached so subsequent constructions surface
// the same failure instead of re-attempting initialization.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// SileroEngine runs Silero VAD v5 inference via ONNX Runtime, one
// inference per exact 512-sample (32ms @ 16kHz) frame, carrying the GRU
// hidden state across calls until Reset.
type SileroEngine struct {
	session *ort.AdvancedSession

	inputTensor *ort.Tensor[float32] // [1, 512]
	stateTensor *ort.Tensor[float32] // [2, 1, 128]
	srTensor    *ort.Tensor[int64]   // scalar

	outputTensor *ort.Tensor[float32] // [1, 1]
	stateNTensor *ort.Tensor[float32] // [2, 1, 128]
}

// SileroAvailable reports whether NewSileroEngine can succeed in this build.
func SileroAvailable() bool { return true }

// NewSileroEngine loads the embedded Silero VAD model and allocates the
// tensors one frame probe needs.
func NewSileroEngine(libPath string) (*SileroEngine, error) {
	if len(sileroModelData) == 0 {
		return nil, fmt.Errorf("vad: silero model data is empty (build without -tags silero?)")
	}

	ortInitOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("vad: initialize onnxruntime: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, FrameSamples))
	if err != nil {
		return nil, fmt.Errorf("vad: create input tensor: %w", err)
	}
	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("vad: create state tensor: %w", err)
	}
	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(SampleRate)})
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		return nil, fmt.Errorf("vad: create sr tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		return nil, fmt.Errorf("vad: create output tensor: %w", err)
	}
	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("vad: create stateN tensor: %w", err)
	}

	session, err := ort.NewAdvancedSessionWithONNXData(
		sileroModelData,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateNTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		stateNTensor.Destroy()
		return nil, fmt.Errorf("vad: create session: %w", err)
	}

	return &SileroEngine{
		session:      session,
		inputTensor:  inputTensor,
		stateTensor:  stateTensor,
		srTensor:     srTensor,
		outputTensor: outputTensor,
		stateNTensor: stateNTensor,
	}, nil
}

// Probability runs one Silero VAD inference on exactly FrameSamples int16
// samples, carrying the hidden state forward to the next call.
func (e *SileroEngine) Probability(frame []int16) (float64, error) {
	if len(frame) != FrameSamples {
		return 0, ErrInsufficientSamples
	}

	dst := e.inputTensor.GetData()
	for i, s := range frame {
		dst[i] = float32(s) / 32768.0
	}

	if err := e.session.Run(); err != nil {
		return 0, fmt.Errorf("vad: inference: %w", err)
	}

	prob := e.outputTensor.GetData()[0]
	copy(e.stateTensor.GetData(), e.stateNTensor.GetData())

	return float64(prob), nil
}

// Reset clears the carried RNN hidden state.
func (e *SileroEngine) Reset() {
	clearFloat32Slice(e.stateTensor.GetData())
}

// Close releases the ONNX Runtime session and tensors. Safe to call once.
func (e *SileroEngine) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.stateTensor != nil {
		e.stateTensor.Destroy()
	}
	if e.srTensor != nil {
		e.srTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
	if e.stateNTensor != nil {
		e.stateNTensor.Destroy()
	}
	return nil
}

func clearFloat32Slice(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
