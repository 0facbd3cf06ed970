package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Overrides are command-line values applied after the file and the
// environment. Zero values are ignored.
type Overrides struct {
	Listen     string
	ScriptPath string
	Timeout    *time.Duration
	LogLevel   string
	LogFormat  string
}

// Load builds the configuration. path may be empty, in which case only
// defaults, the environment and overrides apply. getenv is usually
// os.Getenv.
func Load(path string, getenv func(string) string, o Overrides) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if getenv != nil {
		if p := getenv(EnvScriptPath); p != "" {
			cfg.Script.Path = p
		}
	}

	o.apply(&cfg)
	cfg.applyDefaults()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads a configuration file with no environment or overrides.
func LoadFromFile(path string) (*Config, error) {
	return Load(path, nil, Overrides{})
}

func (o Overrides) apply(c *Config) {
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.ScriptPath != "" {
		c.Script.Path = o.ScriptPath
	}
	if o.Timeout != nil {
		c.Script.Timeout = *o.Timeout
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Log.Format = o.LogFormat
	}
}

// normalize makes filesystem paths absolute, so the running server does
// not depend on its working directory.
func (c *Config) normalize() error {
	abs, err := filepath.Abs(c.Script.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve script path %q: %w", c.Script.Path, err)
	}
	c.Script.Path = abs

	if c.Script.WorkDir != "" {
		wd, err := filepath.Abs(c.Script.WorkDir)
		if err != nil {
			return fmt.Errorf("failed to resolve script workDir %q: %w", c.Script.WorkDir, err)
		}
		c.Script.WorkDir = wd
	}

	if c.ISODir != "" {
		dir, err := filepath.Abs(c.ISODir)
		if err != nil {
			return fmt.Errorf("failed to resolve isoDir %q: %w", c.ISODir, err)
		}
		c.ISODir = dir
	}

	return nil
}
