package config

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level keybridge configuration.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Escape EscapeConfig `toml:"escape"`
	Log    LogConfig    `toml:"log"`
}

// EngineConfig describes how to spawn the external editing engine.
type EngineConfig struct {
	// Command is the engine executable.
	Command string `toml:"command"`

	// Args are passed to the engine process verbatim.
	Args []string `toml:"args"`

	// KillTimeoutMS bounds graceful shutdown before the process is
	// killed.
	KillTimeoutMS int `toml:"kill_timeout_ms"`
}

// KillTimeout returns the shutdown grace period as a duration.
func (e EngineConfig) KillTimeout() time.Duration {
	return time.Duration(e.KillTimeoutMS) * time.Millisecond
}

// EscapeConfig tunes the two-key composite escape chord.
type EscapeConfig struct {
	// FirstKey and SecondKey are the chord characters, one rune each.
	FirstKey  string `toml:"first_key"`
	SecondKey string `toml:"second_key"`

	// WindowMS is the recognition window between the two keys.
	WindowMS int `toml:"window_ms"`
}

// Window returns the chord recognition window as a duration.
func (e EscapeConfig) Window() time.Duration {
	return time.Duration(e.WindowMS) * time.Millisecond
}

// FirstRune returns the first chord key as a rune.
func (e EscapeConfig) FirstRune() rune {
	r, _ := utf8.DecodeRuneInString(e.FirstKey)
	return r
}

// SecondRune returns the second chord key as a rune.
func (e EscapeConfig) SecondRune() rune {
	r, _ := utf8.DecodeRuneInString(e.SecondKey)
	return r
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// File receives log output; empty means stderr.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Command:       "nvim",
			Args:          []string{"--embed", "--headless"},
			KillTimeoutMS: 3000,
		},
		Escape: EscapeConfig{
			FirstKey:  "j",
			SecondKey: "k",
			WindowMS:  200,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration file at path. A missing file is not an
// error; the defaults are returned. Values present in the file override
// defaults section by section.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), &ParseError{Path: path, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// validLevels are the accepted log level names.
var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Engine.Command == "" {
		return &ValidationError{Field: "engine.command", Message: "must not be empty"}
	}
	if c.Engine.KillTimeoutMS < 0 {
		return &ValidationError{Field: "engine.kill_timeout_ms", Message: "must not be negative"}
	}

	if err := validateChordKey("escape.first_key", c.Escape.FirstKey); err != nil {
		return err
	}
	if err := validateChordKey("escape.second_key", c.Escape.SecondKey); err != nil {
		return err
	}
	if c.Escape.WindowMS <= 0 {
		return &ValidationError{Field: "escape.window_ms", Message: "must be positive"}
	}

	if !validLevels[c.Log.Level] {
		return &ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	return nil
}

// validateChordKey requires exactly one printable rune.
func validateChordKey(field, key string) error {
	if utf8.RuneCountInString(key) != 1 {
		return &ValidationError{Field: field, Message: "must be exactly one character"}
	}
	r, _ := utf8.DecodeRuneInString(key)
	if r < 0x20 || r == 0x7f {
		return &ValidationError{Field: field, Message: "must be a printable character"}
	}
	return nil
}
