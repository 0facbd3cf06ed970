// Package config holds the kvm-manager runtime configuration.
//
// A Config is built once by Load (defaults, then an optional YAML file, then
// the environment, then command-line overrides) and is not mutated
// afterwards.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Defaults.
const (
	DefaultListen          = ":8080"
	DefaultScriptPath      = "./kvm-manager.sh"
	DefaultScriptTimeout   = 10 * time.Minute
	DefaultISODir          = "/var/lib/libvirt/images"
	DefaultISO             = "ubuntu-20.04.6-live-server-amd64.iso"
	DefaultNoticeLimit     = 500
	DefaultLibvirtSocket   = "/var/run/libvirt/libvirt-sock"
	DefaultLibvirtTimeout  = 5 * time.Second
	DefaultNetwork         = "nat1"
	DefaultMetricsPath     = "/metrics"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultShutdownTimeout = 30 * time.Second
)

// EnvScriptPath overrides Script.Path when set.
const EnvScriptPath = "KVM_MANAGER_SCRIPT"

// Config is the complete runtime configuration.
type Config struct {
	Listen          string        `yaml:"listen"`
	Script          ScriptConfig  `yaml:"script"`
	ISODir          string        `yaml:"isoDir"`
	DefaultISO      string        `yaml:"defaultISO"`
	NoticeLimit     int           `yaml:"noticeLimit"`
	Locking         LockingConfig `yaml:"locking"`
	Libvirt         LibvirtConfig `yaml:"libvirt"`
	Auth            AuthConfig    `yaml:"auth"`
	Metrics         MetricsConfig `yaml:"metrics"`
	Log             LogConfig     `yaml:"log"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// ScriptConfig locates and bounds the management script.
type ScriptConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"` // 0 waits forever
	WorkDir string        `yaml:"workDir,omitempty"`
	Env     []string      `yaml:"env,omitempty"` // extra KEY=VALUE pairs
}

// LockingConfig controls in-process serialization of script runs.
type LockingConfig struct {
	PerVM bool `yaml:"perVM"`
}

// LibvirtConfig configures the optional read-only libvirt probe.
type LibvirtConfig struct {
	Enabled bool          `yaml:"enabled"`
	Socket  string        `yaml:"socket,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Network string        `yaml:"network,omitempty"`
}

// AuthConfig enables HTTP basic auth when Username is set.
type AuthConfig struct {
	Username     string `yaml:"username,omitempty"`
	PasswordHash string `yaml:"passwordHash,omitempty"` // bcrypt
}

// Enabled reports whether basic auth is configured.
func (a AuthConfig) Enabled() bool {
	return a.Username != ""
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{
		Listen: DefaultListen,
		Script: ScriptConfig{
			Path:    DefaultScriptPath,
			Timeout: DefaultScriptTimeout,
		},
		ISODir:      DefaultISODir,
		DefaultISO:  DefaultISO,
		NoticeLimit: DefaultNoticeLimit,
		Locking:     LockingConfig{PerVM: true},
		Libvirt: LibvirtConfig{
			Socket:  DefaultLibvirtSocket,
			Timeout: DefaultLibvirtTimeout,
			Network: DefaultNetwork,
		},
		Metrics:         MetricsConfig{Path: DefaultMetricsPath},
		Log:             LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// applyDefaults fills string and size fields that a config file left empty.
// Durations are left alone so that an explicit 0 keeps its meaning.
func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Script.Path == "" {
		c.Script.Path = DefaultScriptPath
	}
	if c.DefaultISO == "" {
		c.DefaultISO = DefaultISO
	}
	if c.NoticeLimit == 0 {
		c.NoticeLimit = DefaultNoticeLimit
	}
	if c.Libvirt.Socket == "" {
		c.Libvirt.Socket = DefaultLibvirtSocket
	}
	if c.Libvirt.Timeout == 0 {
		c.Libvirt.Timeout = DefaultLibvirtTimeout
	}
	if c.Libvirt.Network == "" {
		c.Libvirt.Network = DefaultNetwork
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate checks the configuration for errors.
// Does not check that the script exists; that is a readiness concern.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("listen: invalid address %q: %w", c.Listen, err)
	}

	if c.Script.Timeout < 0 {
		return fmt.Errorf("script.timeout must be >= 0, got %s", c.Script.Timeout)
	}
	for i, kv := range c.Script.Env {
		if !strings.Contains(kv, "=") || strings.HasPrefix(kv, "=") {
			return fmt.Errorf("script.env[%d] must be KEY=VALUE, got %q", i, kv)
		}
	}

	if c.NoticeLimit < 0 {
		return fmt.Errorf("noticeLimit must be >= 0, got %d", c.NoticeLimit)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdownTimeout must be >= 0, got %s", c.ShutdownTimeout)
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	switch c.Metrics.Path {
	case "/", "/create", "/network", "/healthz", "/readyz", "/api/vms":
		return fmt.Errorf("metrics.path %q collides with a built-in route", c.Metrics.Path)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Auth.Enabled() {
		if c.Auth.PasswordHash == "" {
			return fmt.Errorf("auth.passwordHash is required when auth.username is set")
		}
		if _, err := bcrypt.Cost([]byte(c.Auth.PasswordHash)); err != nil {
			return fmt.Errorf("auth.passwordHash is not a bcrypt hash: %w", err)
		}
	}

	return nil
}
