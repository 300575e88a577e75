// Package config provides configuration types and defaults for hetero.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/hetero/internal/tracing"
)

// Config holds all configuration options for hetero.
type Config struct {
	// Workers is the number of dispatch goroutines.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Devices is the number of simulated devices in the pool.
	Devices int `mapstructure:"devices" yaml:"devices"`

	// StreamsPerDevice is the stream count per device.
	StreamsPerDevice int `mapstructure:"streams_per_device" yaml:"streams_per_device"`

	// Policy selects the device proposal heuristic: "round-robin" or
	// "least-loaded".
	Policy string `mapstructure:"policy" yaml:"policy"`

	// LogFile enables structured file logging when non-empty.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	// Debug lowers the log threshold to debug level.
	Debug bool `mapstructure:"debug" yaml:"debug"`

	// Tracing configures the OpenTelemetry provider.
	Tracing tracing.Config `mapstructure:"tracing" yaml:"tracing"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Workers:          runtime.NumCPU(),
		Devices:          1,
		StreamsPerDevice: 2,
		Policy:           "round-robin",
		Tracing:          tracing.DefaultConfig(),
	}
}

// Validate checks option ranges and enumerations.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.Devices < 1 {
		return fmt.Errorf("config: devices must be positive, got %d", c.Devices)
	}
	if c.StreamsPerDevice < 1 {
		return fmt.Errorf("config: streams_per_device must be positive, got %d", c.StreamsPerDevice)
	}
	switch c.Policy {
	case "", "round-robin", "least-loaded":
	default:
		return fmt.Errorf("config: unknown policy %q", c.Policy)
	}
	return nil
}

// WriteDefaultConfig writes the default configuration as YAML to path,
// creating parent directories as needed.
func WriteDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: config file is not sensitive
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
