// Package engine is the client for the external modal-editing engine.
//
// The engine runs as a child process and speaks JSON-RPC 2.0 over its
// stdio with Content-Length framing. The client exposes the input
// channel (Input) and the synchronization calls the bridge awaits when
// crossing mode boundaries, and decodes the engine's notifications:
// mode changes and per-document buffer flush acknowledgements.
package engine
