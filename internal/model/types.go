package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/Brownie44l1/mineral-api/internal/preprocess"
	"github.com/Brownie44l1/mineral-api/internal/scores"
)

// Engine runs one forward pass. Implementations are not required to be safe
// for concurrent use; wrap them in Serial.
type Engine interface {
	// Run takes a preprocessed tensor and returns the model's output
	// tensors, flattened. The first output holds the class scores.
	Run(ctx context.Context, input []float32) ([][]float32, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, input []float32) ([][]float32, error)

// Run calls f.
func (f EngineFunc) Run(ctx context.Context, input []float32) ([][]float32, error) {
	return f(ctx, input)
}

// Metadata describes the exported model. It ships next to the .onnx file.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name,omitempty"`
	OutputName  string   `json:"output_name,omitempty"`
}

// DefaultMetadata matches the exported mineral CNN.
func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:  slices.Clone(preprocess.Shape),
		OutputShape: []int64{1, int64(scores.NumClasses)},
		Classes:     slices.Clone(scores.Classes[:]),
		ImageSize:   preprocess.Size,
		InputName:   "input",
		OutputName:  "output",
	}
}

// LoadMetadata reads and validates a metadata file. Missing tensor names
// default to "input" and "output".
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if md.InputName == "" {
		md.InputName = "input"
	}
	if md.OutputName == "" {
		md.OutputName = "output"
	}

	if err := md.Validate(); err != nil {
		return Metadata{}, err
	}
	return md, nil
}

// Validate checks the metadata against the preprocessor geometry and the
// static class table.
func (m Metadata) Validate() error {
	if !slices.Equal(m.InputShape, preprocess.Shape) {
		return fmt.Errorf("model: input shape %v, want %v", m.InputShape, preprocess.Shape)
	}
	if m.ImageSize != 0 && m.ImageSize != preprocess.Size {
		return fmt.Errorf("model: image size %d, want %d", m.ImageSize, preprocess.Size)
	}
	if n := elements(m.OutputShape); n != int64(scores.NumClasses) {
		return fmt.Errorf("%w: output shape %v has %d elements", scores.ErrScoreShapeMismatch, m.OutputShape, n)
	}
	if !slices.Equal(m.Classes, scores.Classes[:]) {
		return fmt.Errorf("%w: metadata classes %v", scores.ErrScoreShapeMismatch, m.Classes)
	}
	return nil
}

func elements(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
