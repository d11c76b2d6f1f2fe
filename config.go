package main

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// configEnv names the environment variable consulted when --config is absent.
const configEnv = "TRISTEG_CONFIG"

// Config holds the command-line tool settings.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// PNGCompression is one of default, none, speed, best.
	PNGCompression string `yaml:"png_compression"`

	// Overwrite allows commands to replace existing output files.
	Overwrite bool `yaml:"overwrite"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		PNGCompression: "default",
		Overwrite:      true,
	}
}

// LoadConfig resolves the config path from flag or environment. With
// neither set it returns the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfigFile(path)
}

// LoadConfigFile reads a YAML file over the defaults and validates the result.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Compression(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
}

// Compression maps PNGCompression to a png.CompressionLevel.
func (c *Config) Compression() (png.CompressionLevel, error) {
	switch c.PNGCompression {
	case "default", "":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	default:
		return 0, fmt.Errorf("unknown png_compression %q", c.PNGCompression)
	}
}
