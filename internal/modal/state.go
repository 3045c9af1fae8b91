package modal

import (
	"sync"

	"github.com/google/uuid"
)

// Mode identifies an engine editing mode by name.
type Mode string

// Engine mode names as reported by mode-change notifications.
const (
	ModeNormal      Mode = "normal"
	ModeInsert      Mode = "insert"
	ModeVisual      Mode = "visual"
	ModeVisualLine  Mode = "visual-line"
	ModeVisualBlock Mode = "visual-block"
	ModeReplace     Mode = "replace"
	ModeCommand     Mode = "command"
)

// IsInsertLike returns true for modes where the host UI's native text
// insertion should dominate.
func (m Mode) IsInsertLike() bool {
	return m == ModeInsert || m == ModeReplace
}

// Subscription identifies a registered change callback.
type Subscription string

// State mirrors the engine's current mode and macro-recording status.
// It is safe for concurrent use. Change callbacks run synchronously on
// the goroutine that calls Set, outside the state lock, in registration
// order.
type State struct {
	mu        sync.RWMutex
	mode      Mode
	recording bool
	subs      map[Subscription]func()
	order     []Subscription
}

// NewState creates mode state starting in normal mode.
func NewState() *State {
	return &State{
		mode: ModeNormal,
		subs: make(map[Subscription]func()),
	}
}

// Mode returns the current engine mode.
func (s *State) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// IsInsert returns true while the engine is in an insert-like mode.
func (s *State) IsInsert() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode.IsInsertLike()
}

// IsRecording returns true while the engine is recording a macro.
func (s *State) IsRecording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recording
}

// Set updates the mirrored mode and recording flag, then notifies
// subscribers. Subscribers are notified after every call, even when the
// values are unchanged: the engine may re-announce a mode and the
// router's reaction must stay idempotent, not suppressed.
func (s *State) Set(mode Mode, recording bool) {
	s.mu.Lock()
	s.mode = mode
	s.recording = recording
	callbacks := make([]func(), 0, len(s.order))
	for _, id := range s.order {
		if fn, ok := s.subs[id]; ok {
			callbacks = append(callbacks, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Subscribe registers a callback invoked after every mode-change
// notification.
func (s *State) Subscribe(fn func()) Subscription {
	id := Subscription(uuid.NewString())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[id] = fn
	s.order = append(s.order, id)
	return id
}

// Unsubscribe removes a previously registered callback. Unknown
// subscriptions are ignored.
func (s *State) Unsubscribe(id Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[id]; !ok {
		return
	}
	delete(s.subs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
