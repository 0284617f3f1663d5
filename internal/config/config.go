package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
)

const (
	defaultConfigPath = "~/.config/hal3a/config.json"
	defaultQueueDepth = 64
)

// Config holds user-editable settings for the translation service.
type Config struct {
	Logging  Logging    `json:"logging"`
	Paths    Paths      `json:"paths"`
	Server   Server     `json:"server"`
	Tuning   aiq.Tuning `json:"tuning"`
	Pipeline Pipeline   `json:"pipeline"`
}

// Logging controls logging verbosity and destinations.
type Logging struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // text, json
	FileOutput bool   `json:"file_output"` // Enable file logging
	LogDir     string `json:"log_dir"`     // Directory for log files
}

// Paths configures where state and inputs live.
type Paths struct {
	DatabasePath   string `json:"database_path"`
	CapabilityFile string `json:"capability_file"`
	CaptureDir     string `json:"capture_dir"`
}

// Server holds listen addresses. An empty address disables that listener.
type Server struct {
	HTTPAddr string `json:"http_addr"`
	GRPCAddr string `json:"grpc_addr"`
}

// Pipeline sizes the per-camera frame queues.
type Pipeline struct {
	QueueDepth int `json:"queue_depth"`
}

// Load reads configuration from disk, falling back to sensible defaults.
func Load() (*Config, error) {
	configPath := os.Getenv("HAL3A_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	return LoadFile(configPath)
}

// LoadFile reads the configuration at path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	expanded, err := expandUser(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", expanded, err)
	}

	cfg.Paths.DatabasePath, err = expandUser(cfg.Paths.DatabasePath)
	if err != nil {
		return nil, err
	}
	cfg.Paths.CapabilityFile, err = expandUser(cfg.Paths.CapabilityFile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Tuning.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tuning: %w", err))
	}
	if c.Pipeline.QueueDepth < 1 {
		errs = append(errs, fmt.Errorf("pipeline.queue_depth must be >= 1, got %d", c.Pipeline.QueueDepth))
	}
	return errors.Join(errs...)
}

func defaultConfig() *Config {
	return &Config{
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			FileOutput: false,
			LogDir:     "./logs",
		},
		Paths: Paths{
			DatabasePath: filepath.Join(os.TempDir(), "hal3a.db"),
			CaptureDir:   ".",
		},
		Server: Server{
			HTTPAddr: ":8080",
			GRPCAddr: ":9090",
		},
		Tuning: aiq.DefaultTuning(),
		Pipeline: Pipeline{
			QueueDepth: defaultQueueDepth,
		},
	}
}

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
