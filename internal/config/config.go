package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/downer/internal/progress"
)

// Config defines configuration for the downer CLI.
type Config struct {
	URL        string        `yaml:"url"`
	Output     string        `yaml:"output"`
	RateLimit  int64         `yaml:"rate_limit"`
	Timeout    time.Duration `yaml:"timeout"`
	BufferSize int           `yaml:"buffer_size"`
	Quiet      bool          `yaml:"quiet"`
	Verbose    bool          `yaml:"verbose"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BufferSize: 32 * 1024,
	}
}

// yamlConfig is used for YAML unmarshaling with human-readable sizes.
type yamlConfig struct {
	URL        string `yaml:"url"`
	Output     string `yaml:"output"`
	RateLimit  string `yaml:"rate_limit"`
	Timeout    string `yaml:"timeout"`
	BufferSize string `yaml:"buffer_size"`
	Quiet      bool   `yaml:"quiet"`
	Verbose    bool   `yaml:"verbose"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.RateLimit != "" {
		limit, err := progress.ParseBytes(yc.RateLimit)
		if err != nil {
			return Config{}, fmt.Errorf("parse rate_limit: %w", err)
		}
		cfg.RateLimit = limit
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.BufferSize != "" {
		size, err := progress.ParseBytes(yc.BufferSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse buffer_size: %w", err)
		}
		cfg.BufferSize = int(size)
	}
	cfg.Quiet = yc.Quiet
	cfg.Verbose = yc.Verbose

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DOWNER_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("DOWNER_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("DOWNER_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("DOWNER_RATE_LIMIT"); v != "" {
		limit, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse DOWNER_RATE_LIMIT: %w", err)
		}
		c.RateLimit = limit
	}
	if v := os.Getenv("DOWNER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse DOWNER_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("DOWNER_BUFFER_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse DOWNER_BUFFER_SIZE: %w", err)
		}
		c.BufferSize = int(size)
	}
	if v := os.Getenv("DOWNER_QUIET"); v != "" {
		c.Quiet = v == "true" || v == "1"
	}
	if v := os.Getenv("DOWNER_VERBOSE"); v != "" {
		c.Verbose = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.RateLimit < 0 {
		return errors.New("config: rate_limit must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.BufferSize <= 0 {
		return errors.New("config: buffer_size must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.URL != "" {
		c.URL = override.URL
	}
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.RateLimit != 0 {
		c.RateLimit = override.RateLimit
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.BufferSize != 0 {
		c.BufferSize = override.BufferSize
	}
	if override.Quiet {
		c.Quiet = override.Quiet
	}
	if override.Verbose {
		c.Verbose = override.Verbose
	}
	return c
}
