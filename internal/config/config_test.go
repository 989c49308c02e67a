package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default("/srv/mineral")

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %s, got %s", DefaultPort, cfg.Port)
	}
	want := filepath.Join("/srv/mineral", "models", DefaultModelFile)
	if cfg.ModelPath != want {
		t.Errorf("expected model path %s, got %s", want, cfg.ModelPath)
	}
	if cfg.InferenceTimeout != DefaultInferenceTimeout {
		t.Errorf("expected timeout %s, got %s", DefaultInferenceTimeout, cfg.InferenceTimeout)
	}
	if cfg.RealTime {
		t.Error("expected paused start by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_PATH", "/tmp/m.onnx")
	t.Setenv("INFERENCE_TIMEOUT", "750ms")
	t.Setenv("REALTIME", "true")
	t.Setenv("CAMERA_DEVICE", "rtsp://cam/stream")

	cfg, err := FromEnv("/srv")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port: got %s", cfg.Port)
	}
	if cfg.ModelPath != "/tmp/m.onnx" {
		t.Errorf("model path: got %s", cfg.ModelPath)
	}
	if cfg.InferenceTimeout != 750*time.Millisecond {
		t.Errorf("timeout: got %s", cfg.InferenceTimeout)
	}
	if !cfg.RealTime {
		t.Error("expected real-time start")
	}
	if cfg.CameraDevice != "rtsp://cam/stream" {
		t.Errorf("camera: got %s", cfg.CameraDevice)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad timeout", "INFERENCE_TIMEOUT", "soon"},
		{"bad realtime", "REALTIME", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := FromEnv("/srv"); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing model", func(c *Config) { c.ModelPath = "" }, true},
		{"missing metadata", func(c *Config) { c.MetadataPath = "" }, true},
		{"zero timeout", func(c *Config) { c.InferenceTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/srv")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
