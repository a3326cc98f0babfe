package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{DefaultProfile: "work", SocketURL: "ws://localhost:4000/", ReconnectMaxMs: 5000}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.SocketURL != "ws://localhost:4000/" {
		t.Errorf("SocketURL = %q", loaded.SocketURL)
	}
	if loaded.ReconnectMaxMs != 5000 {
		t.Errorf("ReconnectMaxMs = %d, want 5000", loaded.ReconnectMaxMs)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	t.Setenv("SIGMA_API_URL", "")
	t.Setenv("SIGMA_SOCKET_URL", "")
	t.Setenv("SIGMA_METRICS_ADDR", "")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want default", cfg.APIBaseURL)
	}
	if cfg.ReconnectInitial() != time.Second {
		t.Errorf("ReconnectInitial = %v, want 1s", cfg.ReconnectInitial())
	}
	if cfg.ReconnectMax() != 8*time.Second {
		t.Errorf("ReconnectMax = %v, want 8s", cfg.ReconnectMax())
	}
	if cfg.ReconnectMultiplier != 2 {
		t.Errorf("ReconnectMultiplier = %v, want 2", cfg.ReconnectMultiplier)
	}
}

func TestLoadOrDefaultFillsPartialFile(t *testing.T) {
	t.Setenv("SIGMA_SOCKET_URL", "")
	t.Setenv("SIGMA_METRICS_ADDR", "")
	t.Setenv("SIGMA_API_URL", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("api_base_url = \"http://127.0.0.1:8080\"\nreconnect_jitter = 0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadOrDefault(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "http://127.0.0.1:8080" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.SocketURL != DefaultSocketURL {
		t.Errorf("SocketURL = %q, want default", cfg.SocketURL)
	}
	if cfg.ReconnectJitter != 0 {
		t.Errorf("ReconnectJitter = %v, want explicit 0 kept", cfg.ReconnectJitter)
	}
}

func TestLoadOrDefaultBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("this is = = not toml"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrDefault(path); err == nil {
		t.Error("LoadOrDefault() expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SIGMA_API_URL", "http://api.test")
	t.Setenv("SIGMA_SOCKET_URL", "ws://rt.test")
	t.Setenv("SIGMA_METRICS_ADDR", "127.0.0.1:9464")

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.APIBaseURL != "http://api.test" || cfg.SocketURL != "ws://rt.test" || cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("SIGMA_SOCKET_URL", "")
	os.Unsetenv("SIGMA_SOCKET_URL")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SIGMA_SOCKET_URL=ws://from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SIGMA_SOCKET_URL"); got != "ws://from-dotenv" {
		t.Errorf("SIGMA_SOCKET_URL = %q, want ws://from-dotenv", got)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		if got := cfg.Level(); got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
