package docsync

import "sync"

// Completion is a one-shot future. It is resolved at most once; waiters
// select on Done and then read Err.
type Completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewCompletion creates an unresolved completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Done returns a channel closed when the completion resolves.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the resolution error. Only meaningful after Done is
// closed; returns nil before resolution.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Resolved returns true once the completion has resolved.
func (c *Completion) Resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// resolve completes the future. Subsequent calls are no-ops.
func (c *Completion) resolve(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}
