package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	// ErrUnknownCommand indicates no handler is registered for a name.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrDuplicateCommand indicates the name is already registered.
	ErrDuplicateCommand = errors.New("command: duplicate command")
)

// HandlerFunc executes a command. Args may be nil.
type HandlerFunc func(ctx context.Context, args map[string]any) error

// Disposable releases a registration. Dispose is idempotent.
type Disposable interface {
	Dispose()
}

// Registry maps command names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register adds a handler under name. Registering an already registered
// name fails; command names are an exclusive namespace.
func (r *Registry) Register(name string, fn HandlerFunc) (Disposable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.handlers[name] = fn

	return &registration{registry: r, name: name}, nil
}

// Dispatch invokes the handler registered under name.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) error {
	r.mu.RLock()
	fn, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return fn(ctx, args)
}

// Has returns true if a handler is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns all registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// unregister removes a handler by name.
func (r *Registry) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// registration is the disposable returned by Register.
type registration struct {
	once     sync.Once
	registry *Registry
	name     string
}

// Dispose removes the registration from its registry.
func (reg *registration) Dispose() {
	reg.once.Do(func() {
		reg.registry.unregister(reg.name)
	})
}

// DisposeFunc adapts a function to the Disposable interface.
type DisposeFunc func()

// Dispose runs the function.
func (f DisposeFunc) Dispose() { f() }

// Group collects disposables for collective teardown.
type Group struct {
	mu    sync.Mutex
	items []Disposable
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{}
}

// Add appends a disposable to the group.
func (g *Group) Add(d Disposable) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items = append(g.items, d)
}

// Dispose releases all members in reverse registration order. Calling
// Dispose again is a no-op.
func (g *Group) Dispose() {
	g.mu.Lock()
	items := g.items
	g.items = nil
	g.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}
