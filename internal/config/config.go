// Package config loads runtime configuration for the mineral classifier
// commands from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults.
const (
	DefaultPort             = "8080"
	DefaultModelFile        = "mineralcnn.onnx"
	DefaultMetadataFile     = "model_metadata.json"
	DefaultCameraDevice     = "0"
	DefaultInferenceTimeout = 2 * time.Second
	DefaultLogLevel         = "info"
)

// Config holds everything the commands need to build a pipeline.
type Config struct {
	Port         string
	ModelPath    string
	MetadataPath string

	// ORTLibPath points at the onnxruntime shared library. Empty uses the
	// runtime's default search.
	ORTLibPath string

	// CameraDevice is a device index ("0") or a stream/file URL.
	CameraDevice string

	InferenceTimeout time.Duration
	LogLevel         string

	// RealTime starts the pipeline in continuous mode instead of paused.
	RealTime bool
}

// Default returns the configuration used when nothing is set.
// Model files are looked up under <root>/models.
func Default(root string) Config {
	return Config{
		Port:             DefaultPort,
		ModelPath:        filepath.Join(root, "models", DefaultModelFile),
		MetadataPath:     filepath.Join(root, "models", DefaultMetadataFile),
		CameraDevice:     DefaultCameraDevice,
		InferenceTimeout: DefaultInferenceTimeout,
		LogLevel:         DefaultLogLevel,
	}
}

// FromEnv returns Default(root) overlaid with environment variables.
func FromEnv(root string) (Config, error) {
	cfg := Default(root)

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv("METADATA_PATH"); v != "" {
		cfg.MetadataPath = v
	}
	if v := os.Getenv("ORT_LIB_PATH"); v != "" {
		cfg.ORTLibPath = v
	}
	if v := os.Getenv("CAMERA_DEVICE"); v != "" {
		cfg.CameraDevice = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("INFERENCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("INFERENCE_TIMEOUT: %w", err)
		}
		cfg.InferenceTimeout = d
	}
	if v := os.Getenv("REALTIME"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("REALTIME: %w", err)
		}
		cfg.RealTime = b
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model path is required"))
	}
	if c.MetadataPath == "" {
		errs = append(errs, errors.New("metadata path is required"))
	}
	if c.InferenceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("inference timeout must be positive, got %s", c.InferenceTimeout))
	}
	return errors.Join(errs...)
}

// ProjectRoot returns the directory holding models/. When a command is run
// from cmd/<name> it steps up two levels.
func ProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if filepath.Base(filepath.Dir(wd)) == "cmd" {
		return filepath.Join(wd, "../.."), nil
	}
	return wd, nil
}
