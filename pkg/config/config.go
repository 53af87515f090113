// Package config loads and validates server configuration from YAML with
// sensible defaults, so the server runs with no config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-sketch/pkg/validation"
)

// Config holds all tunables for the sketch server
type Config struct {
	// ListenAddr is the HTTP/websocket bind address
	ListenAddr string `yaml:"listen_addr"`

	// MaxOperations caps the retained history; the oldest operations are
	// trimmed once the cap is exceeded
	MaxOperations int `yaml:"max_operations"`

	// CheckpointInterval is the compaction interval clients are advised to
	// use: one surface checkpoint every N committed operations
	CheckpointInterval int `yaml:"checkpoint_interval"`

	// CoordinateBound is the absolute limit for point coordinates
	CoordinateBound float64 `yaml:"coordinate_bound"`

	// SendBufferSize is the per-connection outbound message buffer; a full
	// buffer drops the delivery for that connection only
	SendBufferSize int `yaml:"send_buffer_size"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is supplied
func Default() *Config {
	return &Config{
		ListenAddr:         ":8080",
		MaxOperations:      1000,
		CheckpointInterval: 20,
		CoordinateBound:    100000,
		SendBufferSize:     256,
		ShutdownTimeout:    30 * time.Second,
		LogLevel:           "info",
	}
}

// Load reads configuration from the given YAML file, applied on top of
// the defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	return validation.NewConfigValidator("Config").
		Required("ListenAddr", c.ListenAddr).
		Positive("MaxOperations", c.MaxOperations).
		Positive("CheckpointInterval", c.CheckpointInterval).
		PositiveFloat("CoordinateBound", c.CoordinateBound).
		Positive("SendBufferSize", c.SendBufferSize).
		OneOf("LogLevel", c.LogLevel, []string{"debug", "info", "warn", "error"}).
		Validate()
}
