package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"iacrules/internal/logging"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "iacrules" // application name used for config directory

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "IACRULES_CONFIG"
	// EnvLogLevel overrides log_level from the file.
	EnvLogLevel = "IACRULES_LOG_LEVEL"

	DefaultMaxFileSize int64 = 10 * 1024 * 1024
	DefaultRenderWidth       = 100
)

// Config holds user configuration for iacrules. Every field has a usable
// default, so a missing config file is not an error.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	LogLevel    string          `yaml:"log_level"`
	LogFormat   string          `yaml:"log_format"`
	MaxFileSize int64           `yaml:"max_file_size"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Report      ReportConfig    `yaml:"report"`
}

// ServerConfig is reported to clients in the initialize handshake.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// TelemetryConfig controls OpenTelemetry export of tool-call traces and metrics.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // host:port of an OTLP/HTTP collector
	Insecure bool   `yaml:"insecure"`
}

// ReportConfig tunes terminal rendering of reports.
type ReportConfig struct {
	RenderWidth int `yaml:"render_width"`
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    APP_NAME,
			Version: "1.0.0",
		},
		LogLevel:    "warn",
		LogFormat:   "text",
		MaxFileSize: DefaultMaxFileSize,
		Report: ReportConfig{
			RenderWidth: DefaultRenderWidth,
		},
	}
}

// Load loads the config from the standard location, falling back to
// defaults when no file exists.
func Load() (*Config, error) {
	path := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("No config file, using defaults", "path", path)
			cfg := DefaultConfig()
			cfg.applyEnv()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads config from a specific path. Fields absent from the file
// keep their default values.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks field values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	if c.Server.Name == "" {
		return errors.New("server.name must not be empty")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	if c.Report.RenderWidth < 0 {
		return fmt.Errorf("report.render_width must not be negative, got %d", c.Report.RenderWidth)
	}
	return nil
}

func (c *Config) applyEnv() {
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.LogLevel = lvl
	}
}
