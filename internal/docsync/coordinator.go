package docsync

import (
	"context"
	"fmt"
	"sync"
)

// Engine is the subset of the engine client the coordinator calls.
type Engine interface {
	// SyncBuffers pushes full document content to the engine.
	SyncBuffers(ctx context.Context) error

	// SyncRepeat re-registers the last text change with the engine so
	// dot-repeat replays it correctly.
	SyncRepeat(ctx context.Context) error
}

// Coordinator tracks per-document completion locks and runs the bulk
// synchronization operations. It is safe for concurrent use.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*Completion
	engine  Engine
}

// NewCoordinator creates a coordinator backed by the given engine.
func NewCoordinator(engine Engine) *Coordinator {
	return &Coordinator{
		pending: make(map[string]*Completion),
		engine:  engine,
	}
}

// Begin opens a completion lock for the document and returns it. If a
// lock is already outstanding the existing one is returned; an edit
// batch extends the in-flight window, it does not stack a second lock.
func (c *Coordinator) Begin(document string) *Completion {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lock, ok := c.pending[document]; ok {
		return lock
	}
	lock := NewCompletion()
	c.pending[document] = lock
	return lock
}

// Resolve completes the document's outstanding lock, if any, and clears
// it. Resolving a document with no lock is a no-op.
func (c *Coordinator) Resolve(document string, err error) {
	c.mu.Lock()
	lock, ok := c.pending[document]
	if ok {
		delete(c.pending, document)
	}
	c.mu.Unlock()

	if ok {
		lock.resolve(err)
	}
}

// Pending returns the document's outstanding lock, or nil.
func (c *Coordinator) Pending(document string) *Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[document]
}

// HasPending returns true if the document has an outstanding lock.
func (c *Coordinator) HasPending(document string) bool {
	return c.Pending(document) != nil
}

// SyncDocuments performs a full document synchronization with the
// engine.
func (c *Coordinator) SyncDocuments(ctx context.Context) error {
	if err := c.engine.SyncBuffers(ctx); err != nil {
		return fmt.Errorf("docsync: sync buffers: %w", err)
	}
	return nil
}

// SyncLastChange re-registers the last text change with the engine.
func (c *Coordinator) SyncLastChange(ctx context.Context) error {
	if err := c.engine.SyncRepeat(ctx); err != nil {
		return fmt.Errorf("docsync: sync last change: %w", err)
	}
	return nil
}
