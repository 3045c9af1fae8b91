package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/keybridge/internal/modal"
)

func TestNewWithDefaults(t *testing.T) {
	a, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Shutdown()

	cfg := a.Config()
	if cfg.Engine.Command == "" {
		t.Error("default engine command missing")
	}
	if got := cfg.Escape.Window(); got != 200*time.Millisecond {
		t.Errorf("default window = %v, want 200ms", got)
	}
	if a.Logger() == nil {
		t.Error("logger missing")
	}
}

func TestNewLoadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keybridge.toml")
	content := `
[escape]
first_key = "f"
second_key = "d"
window_ms = 120
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Shutdown()

	if got := a.Config().Escape.FirstKey; got != "f" {
		t.Errorf("first_key = %q, want f", got)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keybridge.toml")
	if err := os.WriteFile(path, []byte("[escape]\nwindow_ms = -5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := New(Options{ConfigPath: path}); err == nil {
		t.Fatal("New() accepted an invalid configuration")
	}
}

func TestStartRequiresHost(t *testing.T) {
	a, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Shutdown()

	if err := a.Start(context.Background()); err != ErrNoHost {
		t.Errorf("Start() without host = %v, want %v", err, ErrNoHost)
	}
}

func TestActiveDocument(t *testing.T) {
	a, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Shutdown()

	if got := a.ActiveDocument(); got != "" {
		t.Errorf("initial active document = %q", got)
	}
	a.SetActiveDocument("main.go")
	if got := a.ActiveDocument(); got != "main.go" {
		t.Errorf("active document = %q, want main.go", got)
	}
}

func TestDocumentChangeLifecycle(t *testing.T) {
	a, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Shutdown()

	lock := a.BeginDocumentChange("main.go")
	select {
	case <-lock.Done():
		t.Fatal("lock resolved before the engine acknowledged")
	default:
	}

	// Engine acknowledgement arrives as a buffer_flush notification.
	a.handleFlush("main.go")

	select {
	case <-lock.Done():
	case <-time.After(time.Second):
		t.Fatal("lock not resolved by flush")
	}
	if err := lock.Err(); err != nil {
		t.Errorf("lock error = %v", err)
	}
}

func TestModeChangeMirroredLocally(t *testing.T) {
	a, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Shutdown()

	a.handleModeChange("insert", true)

	if got := a.Modes().Mode(); got != modal.ModeInsert {
		t.Errorf("mode = %v, want insert", got)
	}
	if !a.Modes().IsRecording() {
		t.Error("recording flag not mirrored")
	}
}

func TestDispatchUnknownCommandDoesNotPanic(t *testing.T) {
	a, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Shutdown()

	a.DispatchCommand(context.Background(), "noSuchCommand", nil)
}

func TestShutdownIsIdempotent(t *testing.T) {
	a, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	a.Shutdown()
	a.Shutdown()
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		mode      modal.Mode
		recording bool
		want      string
	}{
		{modal.ModeNormal, false, "-- NORMAL --"},
		{modal.ModeInsert, false, "-- INSERT --"},
		{modal.ModeInsert, true, "-- INSERT -- (recording)"},
		{modal.ModeVisualBlock, false, "-- VISUAL-BLOCK --"},
	}
	for _, tt := range tests {
		if got := statusLine(tt.mode, tt.recording); got != tt.want {
			t.Errorf("statusLine(%v, %v) = %q, want %q", tt.mode, tt.recording, got, tt.want)
		}
	}
}
