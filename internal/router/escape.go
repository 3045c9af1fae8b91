package router

import (
	"context"
	"time"
)

// CompositeEscapeFirst handles the first key of the escape chord. The
// key is inserted optimistically; if the same handler fires again
// inside the window (both chord keys bound to one character) the
// repeat completes the chord.
func (r *Router) CompositeEscapeFirst(ctx context.Context, k string) error {
	now := time.Now()

	r.mu.Lock()
	if r.chordOpenLocked(now) {
		r.escPending = time.Time{}
		r.mu.Unlock()
		return r.completeChord(ctx)
	}
	r.escPending = now
	r.mu.Unlock()

	r.ui.TypeText(k)
	return nil
}

// CompositeEscapeSecond handles the second key of the escape chord.
// Outside the window the key is ordinary text: the first was already
// inserted optimistically, this one is inserted here, and no chord
// attempt is opened.
func (r *Router) CompositeEscapeSecond(ctx context.Context, k string) error {
	now := time.Now()

	r.mu.Lock()
	if r.chordOpenLocked(now) {
		r.escPending = time.Time{}
		r.mu.Unlock()
		return r.completeChord(ctx)
	}
	r.escPending = time.Time{}
	r.mu.Unlock()

	r.ui.TypeText(k)
	return nil
}

// chordOpenLocked reports whether a chord attempt is open and now is
// still inside the window. Elapsed time is recomputed from the stored
// timestamp at call time; a delayed handler can only shrink the
// effective window, never misfire.
func (r *Router) chordOpenLocked(now time.Time) bool {
	return !r.escPending.IsZero() && now.Sub(r.escPending) <= r.escWindow
}

// completeChord undoes the optimistic insertion of the first chord key
// and runs the exit sequence.
func (r *Router) completeChord(ctx context.Context) error {
	r.ui.DeleteLeft()
	return r.EnterNormalMode(ctx)
}
