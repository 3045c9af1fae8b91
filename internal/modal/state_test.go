package modal

import "testing"

func TestStateDefaults(t *testing.T) {
	s := NewState()

	if s.Mode() != ModeNormal {
		t.Errorf("Mode() = %q, want %q", s.Mode(), ModeNormal)
	}
	if s.IsInsert() {
		t.Error("IsInsert() should be false in normal mode")
	}
	if s.IsRecording() {
		t.Error("IsRecording() should be false initially")
	}
}

func TestStateSet(t *testing.T) {
	s := NewState()

	s.Set(ModeInsert, true)

	if s.Mode() != ModeInsert {
		t.Errorf("Mode() = %q, want %q", s.Mode(), ModeInsert)
	}
	if !s.IsInsert() {
		t.Error("IsInsert() should be true")
	}
	if !s.IsRecording() {
		t.Error("IsRecording() should be true")
	}
}

func TestIsInsertLike(t *testing.T) {
	tests := []struct {
		mode Mode
		want bool
	}{
		{ModeInsert, true},
		{ModeReplace, true},
		{ModeNormal, false},
		{ModeVisual, false},
		{ModeVisualLine, false},
		{ModeVisualBlock, false},
		{ModeCommand, false},
	}

	for _, tt := range tests {
		if got := tt.mode.IsInsertLike(); got != tt.want {
			t.Errorf("%q.IsInsertLike() = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestSubscribeNotifiesEveryChange(t *testing.T) {
	s := NewState()

	count := 0
	s.Subscribe(func() { count++ })

	s.Set(ModeInsert, false)
	// Re-announcing the same mode still notifies.
	s.Set(ModeInsert, false)
	s.Set(ModeNormal, false)

	if count != 3 {
		t.Errorf("callback count = %d, want 3", count)
	}
}

func TestSubscriberSeesNewState(t *testing.T) {
	s := NewState()

	var seen Mode
	s.Subscribe(func() { seen = s.Mode() })

	s.Set(ModeVisual, false)

	if seen != ModeVisual {
		t.Errorf("subscriber saw mode %q, want %q", seen, ModeVisual)
	}
}

func TestUnsubscribe(t *testing.T) {
	s := NewState()

	count := 0
	id := s.Subscribe(func() { count++ })
	s.Set(ModeInsert, false)
	s.Unsubscribe(id)
	s.Set(ModeNormal, false)

	if count != 1 {
		t.Errorf("callback count = %d, want 1", count)
	}

	// Unsubscribing twice is harmless.
	s.Unsubscribe(id)
}

func TestSubscribeOrder(t *testing.T) {
	s := NewState()

	var calls []int
	s.Subscribe(func() { calls = append(calls, 1) })
	s.Subscribe(func() { calls = append(calls, 2) })
	s.Subscribe(func() { calls = append(calls, 3) })

	s.Set(ModeInsert, false)

	if len(calls) != 3 || calls[0] != 1 || calls[1] != 2 || calls[2] != 3 {
		t.Errorf("calls = %v, want [1 2 3]", calls)
	}
}
