package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keybridge.toml")
	if err := os.WriteFile(path, []byte("[escape]\nwindow_ms = 200\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloads := make(chan Config, 4)
	w, err := Watch(path,
		func(cfg Config) { reloads <- cfg },
		func(err error) { t.Errorf("unexpected watch error: %v", err) },
		WithDebounce(20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[escape]\nwindow_ms = 350\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloads:
		if cfg.Escape.WindowMS != 350 {
			t.Errorf("window_ms = %d, want 350", cfg.Escape.WindowMS)
		}
		if cfg.Engine.Command != Default().Engine.Command {
			t.Errorf("command = %q, want default preserved", cfg.Engine.Command)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after file change")
	}
}

func TestWatcherReportsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keybridge.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	errs := make(chan error, 4)
	w, err := Watch(path,
		func(cfg Config) { t.Error("invalid file must not reach the reload handler") },
		func(err error) { errs <- err },
		WithDebounce(20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[escape]\nfirst_key = \"jj\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want wrapped %v", err, ErrInvalidConfig)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no error after invalid change")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keybridge.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloads := make(chan Config, 4)
	w, err := Watch(path,
		func(cfg Config) { reloads <- cfg },
		nil,
		WithDebounce(20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case cfg := <-reloads:
		t.Errorf("sibling change triggered a reload: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keybridge.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w, err := Watch(path, nil, nil)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}
