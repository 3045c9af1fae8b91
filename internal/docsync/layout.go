package docsync

import (
	"context"
	"fmt"
)

// LayoutEngine is the engine call used for layout reconciliation.
type LayoutEngine interface {
	// SyncLayout reconciles cursor and selection layout with the
	// engine's view of the buffer.
	SyncLayout(ctx context.Context) error
}

// LayoutSync reconciles multi-cursor and selection layout before the
// bridge leaves insert mode. The actual bookkeeping lives in the
// engine; this is the awaitable surface the router depends on.
type LayoutSync struct {
	engine LayoutEngine
}

// NewLayoutSync creates a layout synchronizer backed by the engine.
func NewLayoutSync(engine LayoutEngine) *LayoutSync {
	return &LayoutSync{engine: engine}
}

// SyncInsertModeLayout reconciles the current view's layout with the
// engine. Called before full document sync on insert-mode exit.
func (l *LayoutSync) SyncInsertModeLayout(ctx context.Context) error {
	if err := l.engine.SyncLayout(ctx); err != nil {
		return fmt.Errorf("docsync: insert layout: %w", err)
	}
	return nil
}
