//go:build integration

package model

import (
	"context"
	"os"
	"testing"

	"github.com/Brownie44l1/mineral-api/internal/preprocess"
	"github.com/Brownie44l1/mineral-api/internal/scores"
)

// Run with: MODEL_PATH=... METADATA_PATH=... ORT_LIB_PATH=... go test -tags=integration ./internal/model/...
func TestSessionIntegration(t *testing.T) {
	modelPath := os.Getenv("MODEL_PATH")
	metadataPath := os.Getenv("METADATA_PATH")
	if modelPath == "" || metadataPath == "" {
		t.Skip("MODEL_PATH or METADATA_PATH not set")
	}

	s, err := NewSession(modelPath, metadataPath, os.Getenv("ORT_LIB_PATH"))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()
	defer Shutdown()

	out, err := s.Run(context.Background(), make([]float32, preprocess.Len))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out[0]) != scores.NumClasses {
		t.Fatalf("scores: got %d, want %d", len(out[0]), scores.NumClasses)
	}
	if _, err := scores.Interpret(out[0]); err != nil {
		t.Errorf("Interpret: %v", err)
	}

	if _, err := s.Run(context.Background(), make([]float32, 3)); err == nil {
		t.Error("expected error for short input")
	}
}
