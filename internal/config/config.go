// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/rawhttpd/internal/core"
)

// GlobalConfig represents the top-level static configuration.
// Maps to the `rawhttpd:` root key in YAML.
type GlobalConfig struct {
	Link     LinkConfig     `mapstructure:"link" yaml:"link"`
	Listen   ListenConfig   `mapstructure:"listen" yaml:"listen"`
	Response ResponseConfig `mapstructure:"response" yaml:"response"`
	Trace    TraceConfig    `mapstructure:"trace" yaml:"trace"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Control  ControlConfig  `mapstructure:"control" yaml:"control"`
}

// ─── Link ───

// LinkConfig selects and sizes the raw link device.
type LinkConfig struct {
	Interface    string        `mapstructure:"interface" yaml:"interface"`
	BufferSize   int           `mapstructure:"buffer_size" yaml:"buffer_size"` // max bytes read per frame
	RingBufferMB int           `mapstructure:"ring_buffer_mb" yaml:"ring_buffer_mb"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	BPF          bool          `mapstructure:"bpf" yaml:"bpf"` // attach a kernel filter for the listen port
}

// ─── Listen ───

// ListenConfig describes the served endpoint and the TCP/IP fields of replies.
type ListenConfig struct {
	Port   uint16 `mapstructure:"port" yaml:"port"`
	MAC    string `mapstructure:"mac" yaml:"mac"` // empty = interface MAC
	Window uint16 `mapstructure:"window" yaml:"window"`
	TTL    uint8  `mapstructure:"ttl" yaml:"ttl"`
}

// HardwareAddr returns the configured source MAC, or the zero MAC when unset.
func (l ListenConfig) HardwareAddr() (core.MAC, error) {
	if l.MAC == "" {
		return core.MAC{}, nil
	}
	return core.ParseMAC(l.MAC)
}

// ─── Response ───

// ResponseConfig is the fixed HTTP response sent on every connection.
type ResponseConfig struct {
	Status      int    `mapstructure:"status" yaml:"status"`
	Server      string `mapstructure:"server" yaml:"server"`
	ContentType string `mapstructure:"content_type" yaml:"content_type"`
	Body        string `mapstructure:"body" yaml:"body"`
}

// ─── Trace ───

// TraceConfig enables a pcap copy of every frame received and sent.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	SnapLen uint32 `mapstructure:"snap_len" yaml:"snap_len"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Control ───

// ControlConfig contains local process control settings.
type ControlConfig struct {
	PIDFile string `mapstructure:"pid_file" yaml:"pid_file"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `rawhttpd: ...`.
type configRoot struct {
	Rawhttpd GlobalConfig `mapstructure:"rawhttpd" yaml:"rawhttpd"`
}

// Load loads configuration from file.
// The YAML file uses `rawhttpd:` as root key; env vars use the RAWHTTPD_ prefix
// (e.g., RAWHTTPD_LINK_INTERFACE).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// key "rawhttpd.link.interface" → env "RAWHTTPD_LINK_INTERFACE"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Rawhttpd

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file sets a value.
func Default() *GlobalConfig {
	v := viper.New()
	setDefaults(v)

	var root configRoot
	// Defaults always decode.
	_ = v.Unmarshal(&root)
	return &root.Rawhttpd
}

// setDefaults sets default values for configuration.
// All keys use the "rawhttpd." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Link defaults
	v.SetDefault("rawhttpd.link.interface", "eth0")
	v.SetDefault("rawhttpd.link.buffer_size", 2000)
	v.SetDefault("rawhttpd.link.ring_buffer_mb", 2)
	v.SetDefault("rawhttpd.link.poll_timeout", "100ms")
	v.SetDefault("rawhttpd.link.bpf", true)

	// Listen defaults
	v.SetDefault("rawhttpd.listen.port", 8080)
	v.SetDefault("rawhttpd.listen.mac", "")
	v.SetDefault("rawhttpd.listen.window", 2000)
	v.SetDefault("rawhttpd.listen.ttl", 64)

	// Response defaults
	v.SetDefault("rawhttpd.response.status", 200)
	v.SetDefault("rawhttpd.response.server", "MySimpleServer/1.0")
	v.SetDefault("rawhttpd.response.content_type", "text/plain")
	v.SetDefault("rawhttpd.response.body", "Hello World\r\n")

	// Trace defaults
	v.SetDefault("rawhttpd.trace.enabled", false)
	v.SetDefault("rawhttpd.trace.path", "/var/lib/rawhttpd/trace.pcap")
	v.SetDefault("rawhttpd.trace.snap_len", 65535)

	// Metrics defaults
	v.SetDefault("rawhttpd.metrics.enabled", true)
	v.SetDefault("rawhttpd.metrics.listen", ":9092")
	v.SetDefault("rawhttpd.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("rawhttpd.log.level", "info")
	v.SetDefault("rawhttpd.log.format", "json")
	v.SetDefault("rawhttpd.log.outputs.file.enabled", false)
	v.SetDefault("rawhttpd.log.outputs.file.path", "/var/log/rawhttpd/rawhttpd.log")
	v.SetDefault("rawhttpd.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("rawhttpd.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("rawhttpd.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("rawhttpd.log.outputs.file.rotation.compress", true)

	// Control defaults
	v.SetDefault("rawhttpd.control.pid_file", "/var/run/rawhttpd.pid")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
// Every failure wraps core.ErrConfigInvalid.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return invalid("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return invalid("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return invalid("log.outputs.file.path is required when file output is enabled")
	}

	// ── Link validation ──
	if cfg.Link.Interface == "" {
		return invalid("link.interface is required")
	}
	minBuffer := core.EthernetHeaderLen + core.IPv4HeaderLen + core.TCPHeaderLen
	if cfg.Link.BufferSize < minBuffer {
		return invalid("link.buffer_size %d is smaller than a bare TCP frame (%d)", cfg.Link.BufferSize, minBuffer)
	}
	if cfg.Link.RingBufferMB <= 0 {
		return invalid("link.ring_buffer_mb must be positive, got %d", cfg.Link.RingBufferMB)
	}
	if cfg.Link.PollTimeout <= 0 {
		return invalid("link.poll_timeout must be positive, got %s", cfg.Link.PollTimeout)
	}

	// ── Listen validation ──
	if cfg.Listen.Port == 0 {
		return invalid("listen.port must be in 1-65535")
	}
	if _, err := cfg.Listen.HardwareAddr(); err != nil {
		return invalid("listen.mac: %v", err)
	}
	if cfg.Listen.TTL == 0 {
		return invalid("listen.ttl must be positive")
	}

	// ── Response validation ──
	if cfg.Response.Status < 100 || cfg.Response.Status > 999 {
		return invalid("response.status %d is not a three-digit status code", cfg.Response.Status)
	}

	// ── Trace defaults ──
	if cfg.Trace.Enabled {
		if cfg.Trace.Path == "" {
			return invalid("trace.path is required when trace.enabled=true")
		}
		if cfg.Trace.SnapLen == 0 {
			cfg.Trace.SnapLen = 65535
		}
	}

	// ── Metrics defaults ──
	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), core.ErrConfigInvalid)
}
