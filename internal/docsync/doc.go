// Package docsync coordinates document reconciliation between the host
// UI and the engine.
//
// While an edit batch is in flight to the engine, the affected document
// holds a completion lock. Entering insert mode must not hand the
// keystroke channel back to the host UI until that lock resolves,
// otherwise typed text would land in a buffer the engine has not
// caught up with yet. The coordinator also exposes the bulk operations
// run when leaving insert mode: full buffer sync and dot-repeat
// re-registration.
package docsync
