package engine

import "errors"

// Client errors.
var (
	// ErrShutdown indicates the transport has been closed.
	ErrShutdown = errors.New("engine: transport shut down")

	// ErrNotStarted indicates the client has not been started.
	ErrNotStarted = errors.New("engine: client not started")

	// ErrAlreadyStarted indicates the client is already running.
	ErrAlreadyStarted = errors.New("engine: client already started")

	// ErrProcessExited indicates the engine process terminated.
	ErrProcessExited = errors.New("engine: process exited")
)
