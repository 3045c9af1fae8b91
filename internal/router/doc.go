// Package router implements the keystroke routing core of the bridge.
//
// The router sits between the host UI's raw keystroke channel and the
// modal engine. In any mode except stable insert it owns the channel
// and redirects every typed character to the engine; in stable insert
// mode it steps aside so the host's native editing (IME, auto-indent,
// snippets) dominates.
//
// # Transitions
//
// Mode boundaries are asynchronous: entering insert mode may have to
// wait for an outstanding document completion lock, and leaving it
// awaits layout reconciliation, full document sync, and dot-repeat
// re-registration. Keystrokes typed inside these windows are held in
// ordered pending buffers and replayed exactly once when the
// transition settles:
//
//   - Pending-after-enter: keys typed after insert mode began but
//     before the completion lock resolved. Replayed through default
//     insertion if insert mode still holds, else through the engine.
//   - Pending-after-exit: keys typed after an exit command was issued.
//     Flushed to the engine as a single atomic call, prefixed by the
//     exit key.
//
// The two buffers belong to disjoint phases, tracked as an explicit
// tagged state (idle, entering, exiting) owned solely by the router.
//
// # Composite escape
//
// A two-keystroke chord typed within a short window substitutes for
// the escape key. The first key is inserted optimistically; when the
// second arrives inside the window, the inserted character is deleted
// and the exit sequence runs. Recognition uses wall-clock timestamps
// read at call time rather than scheduled timers, so a busy host can
// only narrow the window, never corrupt the result.
package router
