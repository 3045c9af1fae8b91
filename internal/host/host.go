package host

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInterceptionActive indicates the keystroke channel is already
// owned by another interception.
var ErrInterceptionActive = errors.New("host: keystroke channel already intercepted")

// TypeHandler receives raw typed text while an interception is active.
type TypeHandler func(text string)

// UI is the host user interface the router mediates for.
type UI interface {
	// Intercept acquires the raw keystroke channel. While the returned
	// handle is held, every typed character is delivered to h and the
	// default insertion path is bypassed. Only one interception may be
	// active at a time.
	Intercept(h TypeHandler) (*Interception, error)

	// TypeText inserts text through the default insertion path.
	TypeText(text string)

	// DeleteLeft removes the character immediately before the cursor.
	DeleteLeft()
}

// Interception is the capability token for the keystroke channel.
// Exactly one of owned or released at any instant; releasing is
// idempotent.
type Interception struct {
	once     sync.Once
	released atomic.Bool
	release  func()
}

// NewInterception creates a handle whose release runs fn once.
// Implementations of UI use fn to detach the interceptor.
func NewInterception(fn func()) *Interception {
	return &Interception{release: fn}
}

// Release gives the channel back to the default insertion path.
// Returns true if this call performed the release, false if the handle
// was already released.
func (i *Interception) Release() bool {
	changed := false
	i.once.Do(func() {
		i.released.Store(true)
		if i.release != nil {
			i.release()
		}
		changed = true
	})
	return changed
}

// Released returns true once the handle has been released.
func (i *Interception) Released() bool {
	return i.released.Load()
}
