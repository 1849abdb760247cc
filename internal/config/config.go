package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RenderConfig sizes the render surface and bounds each cycle.
type RenderConfig struct {
	Width         int           `yaml:"width"`          // Surface width in pixels (default 240)
	Height        int           `yaml:"height"`         // Surface height in pixels (default 160)
	Budget        time.Duration `yaml:"budget"`         // Work allowed per cycle (default 16ms)
	FrameInterval time.Duration `yaml:"frame_interval"` // Delay before a requested cycle runs (default 16ms)
	Background    string        `yaml:"background"`     // Surface reset color (default #ffffff)
	RenderBatch   int           `yaml:"render_batch"`   // Display items drawn per Render call (default 64)
	ScriptTimeout time.Duration `yaml:"script_timeout"` // Limit on one scene script run (default 100ms)
}

// DefaultRenderConfig returns sensible defaults.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:         240,
		Height:        160,
		Budget:        16 * time.Millisecond,
		FrameInterval: 16 * time.Millisecond,
		Background:    "#ffffff",
		RenderBatch:   64,
		ScriptTimeout: 100 * time.Millisecond,
	}
}

// Validate checks that the render settings are usable.
func (c RenderConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("render size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Budget <= 0 {
		return fmt.Errorf("render budget must be positive, got %s", c.Budget)
	}
	if c.FrameInterval < 0 {
		return fmt.Errorf("frame interval must not be negative, got %s", c.FrameInterval)
	}
	if c.ScriptTimeout < 0 {
		return fmt.Errorf("script timeout must not be negative, got %s", c.ScriptTimeout)
	}
	return nil
}

// SinkConfig says where finished images are written besides the store.
// An empty Dir and S3Bucket disables the sink.
type SinkConfig struct {
	Dir      string `yaml:"dir"`       // Local directory for PNG files
	S3Bucket string `yaml:"s3_bucket"` // S3 bucket; takes precedence over Dir
	S3Prefix string `yaml:"s3_prefix"` // Key prefix inside the bucket
	S3Region string `yaml:"s3_region"` // Region override (default from the AWS environment)
}

// Enabled reports whether any destination is configured.
func (c SinkConfig) Enabled() bool {
	return c.Dir != "" || c.S3Bucket != ""
}

// ServerConfig holds configuration for the imagebuilder server.
type ServerConfig struct {
	Addr      string       `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string       `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string       `yaml:"log_format"` // Log format: text, json
	DBPath    string       `yaml:"db_path"`    // SQLite database path (default ~/.imagebuilder/imagebuilder.db, ":memory:" for testing)
	Render    RenderConfig `yaml:"render"`
	Sink      SinkConfig   `yaml:"sink"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Render:    DefaultRenderConfig(),
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Render.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
