package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Config represents the global ~/.sigma/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`

	// APIBaseURL is the REST backend serving /users, /login and /register.
	APIBaseURL string `toml:"api_base_url"`
	// SocketURL is the realtime endpoint (ws:// or wss://; http(s) is rewritten).
	SocketURL string `toml:"socket_url"`

	ReconnectInitialMs  int     `toml:"reconnect_initial_ms"`
	ReconnectMaxMs      int     `toml:"reconnect_max_ms"`
	ReconnectMultiplier float64 `toml:"reconnect_multiplier"`
	ReconnectJitter     float64 `toml:"reconnect_jitter"`
	HandshakeTimeoutMs  int     `toml:"handshake_timeout_ms"`
	RequestTimeoutMs    int     `toml:"request_timeout_ms"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// MetricsAddr enables the Prometheus endpoint when non-empty (e.g. "127.0.0.1:9464").
	MetricsAddr string `toml:"metrics_addr"`
}

const (
	DefaultAPIBaseURL = "https://workspace-cyan-rho.vercel.app/"
	DefaultSocketURL  = "wss://chat-server-4ikh.onrender.com/"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		APIBaseURL:          DefaultAPIBaseURL,
		SocketURL:           DefaultSocketURL,
		ReconnectInitialMs:  1000,
		ReconnectMaxMs:      8000,
		ReconnectMultiplier: 2,
		ReconnectJitter:     0.5,
		HandshakeTimeoutMs:  20000,
		RequestTimeoutMs:    15000,
		LogLevel:            "info",
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault reads path, falling back to Default when the file is missing,
// fills unset fields from Default and applies environment overrides.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		cfg = Default()
	default:
		return nil, err
	}
	cfg.fillDefaults()
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides fields from SIGMA_API_URL, SIGMA_SOCKET_URL,
// SIGMA_METRICS_ADDR and SIGMA_LOG_LEVEL.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SIGMA_API_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("SIGMA_SOCKET_URL"); v != "" {
		c.SocketURL = v
	}
	if v := os.Getenv("SIGMA_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("SIGMA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.APIBaseURL == "" {
		c.APIBaseURL = d.APIBaseURL
	}
	if c.SocketURL == "" {
		c.SocketURL = d.SocketURL
	}
	if c.ReconnectInitialMs <= 0 {
		c.ReconnectInitialMs = d.ReconnectInitialMs
	}
	if c.ReconnectMaxMs <= 0 {
		c.ReconnectMaxMs = d.ReconnectMaxMs
	}
	if c.ReconnectMultiplier < 1 {
		c.ReconnectMultiplier = d.ReconnectMultiplier
	}
	if c.ReconnectJitter < 0 || c.ReconnectJitter >= 1 {
		c.ReconnectJitter = d.ReconnectJitter
	}
	if c.HandshakeTimeoutMs <= 0 {
		c.HandshakeTimeoutMs = d.HandshakeTimeoutMs
	}
	if c.RequestTimeoutMs <= 0 {
		c.RequestTimeoutMs = d.RequestTimeoutMs
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// ReconnectInitial returns the first reconnect delay.
func (c *Config) ReconnectInitial() time.Duration {
	return time.Duration(c.ReconnectInitialMs) * time.Millisecond
}

// ReconnectMax returns the reconnect delay cap.
func (c *Config) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxMs) * time.Millisecond
}

// HandshakeTimeout returns the realtime dial timeout.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMs) * time.Millisecond
}

// RequestTimeout returns the REST request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}
