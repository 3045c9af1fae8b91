// Package modal tracks the engine's authoritative editing mode.
//
// The engine owns the notion of mode; the bridge only mirrors it. State
// is updated from engine mode-change notifications and fans out change
// callbacks to subscribers such as the input router. Subscribers receive
// no payload — they read the current flags when notified.
package modal
