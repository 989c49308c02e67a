// Package model loads the mineral CNN into ONNX Runtime and exposes it as an
// Engine.
package model

import (
	"context"
	"fmt"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Session is an ONNX Runtime session with pre-allocated input and output
// tensors. It is not safe for concurrent use.
type Session struct {
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

var envMu sync.Mutex

// NewSession initializes the runtime environment (once per process) and
// loads the model. libPath may be empty to use the default library lookup.
func NewSession(modelPath, metadataPath, libPath string) (*Session, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	envMu.Lock()
	if !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envMu.Unlock()
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	envMu.Unlock()

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Run copies input into the session, runs it, and returns a copy of the
// output. The runtime call cannot be interrupted, so ctx is only checked
// before it starts.
func (s *Session) Run(ctx context.Context, input []float32) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := s.inputTensor.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input), len(dst))
	}
	copy(dst, input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return [][]float32{slices.Clone(s.outputTensor.GetData())}, nil
}

// Close releases the session and its tensors. The runtime environment is
// left up for other sessions; see Shutdown.
func (s *Session) Close() {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
}

// Shutdown tears down the ONNX Runtime environment.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
