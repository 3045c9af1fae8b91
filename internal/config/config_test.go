package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if got := cfg.Escape.Window(); got != 200*time.Millisecond {
		t.Errorf("default window = %v, want 200ms", got)
	}
	if cfg.Escape.FirstRune() != 'j' || cfg.Escape.SecondRune() != 'k' {
		t.Errorf("default chord = %q %q, want j k", cfg.Escape.FirstKey, cfg.Escape.SecondKey)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keybridge.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[engine]
command = "nvim-nightly"
args = ["--embed"]
kill_timeout_ms = 1500

[escape]
first_key = "f"
second_key = "d"
window_ms = 150

[log]
level = "debug"
file = "/tmp/keybridge.log"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.Command != "nvim-nightly" {
		t.Errorf("command = %q", cfg.Engine.Command)
	}
	if got := cfg.Engine.KillTimeout(); got != 1500*time.Millisecond {
		t.Errorf("kill timeout = %v", got)
	}
	if cfg.Escape.FirstKey != "f" || cfg.Escape.SecondKey != "d" {
		t.Errorf("chord = %q %q", cfg.Escape.FirstKey, cfg.Escape.SecondKey)
	}
	if got := cfg.Escape.Window(); got != 150*time.Millisecond {
		t.Errorf("window = %v", got)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/keybridge.log" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[escape]
window_ms = 300
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.Command != Default().Engine.Command {
		t.Errorf("command = %q, want default", cfg.Engine.Command)
	}
	if cfg.Escape.WindowMS != 300 {
		t.Errorf("window_ms = %d, want 300", cfg.Escape.WindowMS)
	}
	if cfg.Escape.FirstKey != "j" {
		t.Errorf("first_key = %q, want default", cfg.Escape.FirstKey)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, `[escape`)

	_, err := Load(path)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if parseErr.Path != path {
		t.Errorf("path = %q, want %q", parseErr.Path, path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty command", func(c *Config) { c.Engine.Command = "" }, "engine.command"},
		{"negative kill timeout", func(c *Config) { c.Engine.KillTimeoutMS = -1 }, "engine.kill_timeout_ms"},
		{"empty first key", func(c *Config) { c.Escape.FirstKey = "" }, "escape.first_key"},
		{"multi-rune second key", func(c *Config) { c.Escape.SecondKey = "kk" }, "escape.second_key"},
		{"control chord key", func(c *Config) { c.Escape.FirstKey = "\x1b" }, "escape.first_key"},
		{"zero window", func(c *Config) { c.Escape.WindowMS = 0 }, "escape.window_ms"},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("error = %v, want wrapped %v", err, ErrInvalidConfig)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestLoadInvalidFileReturnsDefaults(t *testing.T) {
	path := writeConfig(t, `
[escape]
first_key = "jj"
`)

	cfg, err := Load(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want wrapped %v", err, ErrInvalidConfig)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("invalid file must fall back to defaults, got %+v", cfg)
	}
}
