package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/keybridge/internal/docsync"
	"github.com/dshills/keybridge/internal/host"
	"github.com/dshills/keybridge/internal/key"
	"github.com/dshills/keybridge/internal/modal"
)

// ErrClosed indicates the router has been closed.
var ErrClosed = errors.New("router: closed")

// Engine is the engine input channel the router forwards keys to.
type Engine interface {
	// Input sends a key sequence as one atomic engine call.
	Input(ctx context.Context, keys string) error
}

// DocSync exposes completion locks and the bulk sync operations.
type DocSync interface {
	Pending(document string) *docsync.Completion
	SyncDocuments(ctx context.Context) error
	SyncLastChange(ctx context.Context) error
}

// LayoutSync reconciles cursor/selection layout before leaving insert
// mode.
type LayoutSync interface {
	SyncInsertModeLayout(ctx context.Context) error
}

// ModeState is the engine-owned mode mirror the router consults.
type ModeState interface {
	IsInsert() bool
	IsRecording() bool
	Subscribe(fn func()) modal.Subscription
	Unsubscribe(id modal.Subscription)
}

// Phase is the router's transition state. The router is its sole
// writer; mode-change notifications only signal that the external mode
// moved.
type Phase int

const (
	// PhaseIdle means no transition is in flight.
	PhaseIdle Phase = iota
	// PhaseEntering means insert mode began but the active document's
	// completion lock has not resolved yet.
	PhaseEntering
	// PhaseExiting means an exit command was issued and its awaited
	// synchronization steps have not finished.
	PhaseExiting
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEntering:
		return "entering-insert"
	case PhaseExiting:
		return "exiting-insert"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// DefaultEscapeWindow is the composite-escape recognition window.
const DefaultEscapeWindow = 200 * time.Millisecond

// Config configures the router.
type Config struct {
	// ActiveDocument names the document whose completion lock gates
	// insert-mode entry. Defaults to a constant empty name.
	ActiveDocument func() string

	// EscapeWindow is the composite-escape chord window.
	// Default: DefaultEscapeWindow.
	EscapeWindow time.Duration

	// OnError receives failures from fire-and-forget paths (forwarded
	// keystrokes, stale lock resolutions). May be nil.
	OnError func(op string, err error)
}

// inputRequest is one queued engine send. result is nil for
// fire-and-forget forwards.
type inputRequest struct {
	keys   string
	result chan error
}

// Router owns the host's raw keystroke channel outside stable insert
// mode and coordinates key delivery across mode transitions.
type Router struct {
	mu sync.Mutex

	ui     host.UI
	engine Engine
	docs   DocSync
	layout LayoutSync
	modes  ModeState

	activeDocument func() string
	escWindow      time.Duration
	onError        func(op string, err error)

	interception *host.Interception
	phase        Phase

	pendingAfterEnter []string
	pendingAfterExit  []string

	// escPending is the timestamp of a candidate chord's first key;
	// zero when no chord attempt is open. Shared by both chord
	// handlers.
	escPending time.Time

	// exitMu serializes exit flushes so two quick exit gestures cannot
	// reorder their engine calls.
	exitMu sync.Mutex

	sub    modal.Subscription
	inputs chan inputRequest
	quit   chan struct{}
	closed bool
}

// New creates a router and immediately acquires the keystroke channel:
// the bridge starts in normal mode, where the router owns every key.
func New(ui host.UI, engine Engine, docs DocSync, layout LayoutSync, modes ModeState, config Config) (*Router, error) {
	if config.EscapeWindow <= 0 {
		config.EscapeWindow = DefaultEscapeWindow
	}
	if config.ActiveDocument == nil {
		config.ActiveDocument = func() string { return "" }
	}

	r := &Router{
		ui:             ui,
		engine:         engine,
		docs:           docs,
		layout:         layout,
		modes:          modes,
		activeDocument: config.ActiveDocument,
		escWindow:      config.EscapeWindow,
		onError:        config.OnError,
		inputs:         make(chan inputRequest, 64),
		quit:           make(chan struct{}),
	}

	handle, err := ui.Intercept(r.handleType)
	if err != nil {
		return nil, fmt.Errorf("router: acquire interception: %w", err)
	}
	r.interception = handle
	r.sub = modes.Subscribe(r.handleModeChange)

	go r.inputLoop()
	return r, nil
}

// Close releases the keystroke channel, unsubscribes from mode
// notifications, and stops the engine send queue. Idempotent.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.releaseLocked()
	sub := r.sub
	r.mu.Unlock()

	r.modes.Unsubscribe(sub)
	close(r.quit)
}

// Intercepting returns true while the router owns the keystroke
// channel.
func (r *Router) Intercepting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interception != nil
}

// Phase returns the current transition phase.
func (r *Router) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// SetEscapeWindow retunes the composite-escape recognition window.
// Non-positive values are ignored.
func (r *Router) SetEscapeWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.escWindow = d
	r.mu.Unlock()
}

// handleType receives every raw keystroke while interception is owned.
// Every branch has exactly one destination: engine, a pending buffer,
// or default insertion. No branch drops a key.
func (r *Router) handleType(text string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	insert := r.modes.IsInsert()
	// Recording only suppresses normalization while in insert mode;
	// the engine reports the flag across all modes.
	recording := insert && r.modes.IsRecording()

	switch {
	case !insert || recording || r.phase == PhaseEntering:
		if r.phase == PhaseEntering {
			r.pendingAfterEnter = append(r.pendingAfterEnter, text)
			r.mu.Unlock()
			return
		}
		// Recording in insert mode must reach the engine verbatim so
		// macro playback reproduces the literal text.
		keys := key.NormalizeInput(text, !recording)
		r.mu.Unlock()
		if err := r.enqueue(keys, nil); err != nil {
			r.reportError("engine input", err)
		}
	case r.phase == PhaseExiting:
		r.pendingAfterExit = append(r.pendingAfterExit, text)
		r.mu.Unlock()
	default:
		// Stable insert with interception still owned (a release can
		// trail the mode notification): fall through to the default
		// insertion path.
		r.mu.Unlock()
		r.ui.TypeText(text)
	}
}

// handleModeChange reacts to every mode-change notification.
func (r *Router) handleModeChange() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	insert := r.modes.IsInsert()
	recording := r.modes.IsRecording()

	if insert && !recording {
		r.pendingAfterEnter = nil
		lock := r.docs.Pending(r.activeDocument())
		if lock == nil {
			// No outstanding sync: hand the channel to the host now.
			r.phase = PhaseIdle
			r.releaseLocked()
			r.mu.Unlock()
			return
		}
		r.phase = PhaseEntering
		r.mu.Unlock()
		go r.completeEnter(lock)
		return
	}

	if !insert {
		// Clears both transitional states. Keys that arrived after the
		// exit flush drained its buffer would otherwise sit here until
		// an unrelated future exit; forward them now.
		r.phase = PhaseIdle
		r.acquireLocked()
		residue := strings.Join(r.pendingAfterExit, "")
		r.pendingAfterExit = nil
		r.mu.Unlock()
		if residue != "" {
			if err := r.enqueue(key.NormalizeInput(residue, true), nil); err != nil {
				r.reportError("exit residue", err)
			}
		}
		return
	}

	// Insert mode while recording: keep the channel and forward
	// verbatim; nothing to switch.
	r.mu.Unlock()
}

// completeEnter finishes a deferred insert-mode entry once the
// document's completion lock resolves. The mode may have moved again
// in the meantime, so every condition is re-checked against current
// state before acting.
func (r *Router) completeEnter(lock *docsync.Completion) {
	<-lock.Done()
	if err := lock.Err(); err != nil {
		r.reportError("completion lock", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	stale := r.phase != PhaseEntering
	if !stale {
		r.phase = PhaseIdle
	}

	insert := r.modes.IsInsert()
	recording := insert && r.modes.IsRecording()
	if !stale && insert {
		r.releaseLocked()
	}

	pending := strings.Join(r.pendingAfterEnter, "")
	r.pendingAfterEnter = nil
	r.mu.Unlock()

	if pending == "" {
		return
	}
	// Replay target follows the mode at resolution time, not the mode
	// when the wait began.
	if insert {
		r.ui.TypeText(pending)
		return
	}
	if err := r.enqueue(key.NormalizeInput(pending, !recording), nil); err != nil {
		r.reportError("pending replay", err)
	}
}

// EnterNormalMode runs the insert-mode exit sequence with the escape
// key.
func (r *Router) EnterNormalMode(ctx context.Context) error {
	return r.leaveInsert(ctx, key.Escape)
}

// InsertCtrlEscape leaves insert mode for a single command, signalling
// the engine to return to insert afterwards.
func (r *Router) InsertCtrlEscape(ctx context.Context) error {
	return r.leaveInsert(ctx, key.CtrlO)
}

// leaveInsert is the normal-mode-entry sequence. Interception is
// re-acquired strictly before the first awaited step so keystrokes
// typed during the awaits land in the exit buffer instead of the host
// document. On failure nothing is flushed: the engine either receives
// the whole exit sequence or none of it.
func (r *Router) leaveInsert(ctx context.Context, exitKey string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if !r.modes.IsInsert() {
		r.mu.Unlock()
		// Outside insert mode there is nothing to synchronize; the
		// key goes straight to the engine.
		return r.input(ctx, exitKey)
	}

	r.phase = PhaseExiting
	r.acquireLocked()
	r.mu.Unlock()

	r.exitMu.Lock()
	defer r.exitMu.Unlock()

	if err := r.layout.SyncInsertModeLayout(ctx); err != nil {
		return r.failExit("layout sync", err)
	}
	if err := r.docs.SyncDocuments(ctx); err != nil {
		return r.failExit("document sync", err)
	}
	if err := r.docs.SyncLastChange(ctx); err != nil {
		return r.failExit("dot-repeat sync", err)
	}

	r.mu.Lock()
	drained := strings.Join(r.pendingAfterExit, "")
	r.pendingAfterExit = nil
	r.mu.Unlock()

	// One atomic call; the buffer is already empty even if it fails.
	return r.input(ctx, exitKey+drained)
}

// failExit abandons a failed exit attempt. Buffered exit keys are kept
// for the next attempt; the phase falls back to idle so typing reaches
// the host again. The engine received nothing.
func (r *Router) failExit(op string, err error) error {
	r.mu.Lock()
	if r.phase == PhaseExiting {
		r.phase = PhaseIdle
	}
	r.mu.Unlock()
	return fmt.Errorf("router: %s: %w", op, err)
}

// acquireLocked (re)registers the interception handle. Reports whether
// a change occurred; already owning the channel is not an error.
func (r *Router) acquireLocked() bool {
	if r.interception != nil && !r.interception.Released() {
		return false
	}
	handle, err := r.ui.Intercept(r.handleType)
	if err != nil {
		r.reportError("acquire interception", err)
		return false
	}
	r.interception = handle
	return true
}

// releaseLocked disposes the interception handle if owned. Reports
// whether a change occurred.
func (r *Router) releaseLocked() bool {
	if r.interception == nil {
		return false
	}
	changed := r.interception.Release()
	r.interception = nil
	return changed
}

// input enqueues an engine send and waits for its result.
func (r *Router) input(ctx context.Context, keys string) error {
	result := make(chan error, 1)
	if err := r.enqueue(keys, result); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue hands keys to the single sender goroutine. All engine sends
// pass through one queue so forwarded keys and exit flushes keep their
// arrival order. Empty sequences are dropped before reaching the
// engine.
func (r *Router) enqueue(keys string, result chan error) error {
	if keys == "" {
		if result != nil {
			result <- nil
		}
		return nil
	}
	select {
	case r.inputs <- inputRequest{keys: keys, result: result}:
		return nil
	case <-r.quit:
		return ErrClosed
	}
}

// inputLoop is the single engine sender.
func (r *Router) inputLoop() {
	for {
		select {
		case <-r.quit:
			return
		case req := <-r.inputs:
			err := r.engine.Input(context.Background(), req.keys)
			if req.result != nil {
				req.result <- err
			} else if err != nil {
				r.reportError("engine input", err)
			}
		}
	}
}

func (r *Router) reportError(op string, err error) {
	if r.onError != nil {
		r.onError(op, err)
	}
}
