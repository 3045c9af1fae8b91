package app

import "errors"

// Application errors.
var (
	// ErrNoHost indicates Start was called before a host UI was set.
	ErrNoHost = errors.New("app: no host UI configured")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("app: already started")
)
