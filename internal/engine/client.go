package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// RPC method and notification names.
const (
	methodInput       = "input"
	methodSyncBuffers = "sync_buffers"
	methodSyncRepeat  = "sync_repeat"
	methodSyncLayout  = "sync_layout"

	notifyModeChanged = "mode_changed"
	notifyBufferFlush = "buffer_flush"
)

// ModeChangeHandler receives engine mode-change notifications.
type ModeChangeHandler func(mode string, recording bool)

// FlushHandler receives per-document buffer flush acknowledgements.
type FlushHandler func(document string)

// ExitHandler is called when the engine process exits.
type ExitHandler func(err error)

// ClientConfig configures the engine client.
type ClientConfig struct {
	// Command and Args launch the engine process.
	Command string
	Args    []string

	// KillWait bounds graceful shutdown before the process is killed.
	KillWait time.Duration

	// OnModeChange, OnFlush and OnExit receive engine events. Any may
	// be nil.
	OnModeChange ModeChangeHandler
	OnFlush      FlushHandler
	OnExit       ExitHandler
}

// Client manages the engine process and its RPC connection.
type Client struct {
	mu        sync.Mutex
	config    ClientConfig
	proc      *Process
	transport *Transport
	started   bool
}

// NewClient creates an engine client. Start launches the process.
func NewClient(config ClientConfig) *Client {
	if config.KillWait <= 0 {
		config.KillWait = 3 * time.Second
	}
	return &Client{config: config}
}

// Start launches the engine process and begins the RPC read loop.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	proc := NewProcess(c.config.Command, c.config.Args, c.config.KillWait)
	if err := proc.Start(); err != nil {
		return err
	}

	transport := NewTransport(proc.Stdout(), proc.Stdin(), nil)
	transport.OnNotification(notifyModeChanged, c.handleModeChanged)
	transport.OnNotification(notifyBufferFlush, c.handleBufferFlush)
	transport.Start(ctx)

	c.proc = proc
	c.transport = transport
	c.started = true

	if onExit := c.config.OnExit; onExit != nil {
		go func() {
			<-proc.Done()
			onExit(proc.ExitErr())
		}()
	}
	return nil
}

// Close stops the RPC connection and the engine process.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}
	c.started = false

	_ = c.transport.Close()
	return c.proc.Stop()
}

// Input sends a key sequence to the engine's input channel. The whole
// sequence is one atomic engine call.
func (c *Client) Input(ctx context.Context, keys string) error {
	t, err := c.currentTransport()
	if err != nil {
		return err
	}
	return t.Call(ctx, methodInput, map[string]string{"keys": keys}, nil)
}

// SyncBuffers pushes full document content to the engine.
func (c *Client) SyncBuffers(ctx context.Context) error {
	t, err := c.currentTransport()
	if err != nil {
		return err
	}
	return t.Call(ctx, methodSyncBuffers, struct{}{}, nil)
}

// SyncRepeat re-registers the last text change for dot-repeat.
func (c *Client) SyncRepeat(ctx context.Context) error {
	t, err := c.currentTransport()
	if err != nil {
		return err
	}
	return t.Call(ctx, methodSyncRepeat, struct{}{}, nil)
}

// SyncLayout reconciles cursor and selection layout.
func (c *Client) SyncLayout(ctx context.Context) error {
	t, err := c.currentTransport()
	if err != nil {
		return err
	}
	return t.Call(ctx, methodSyncLayout, struct{}{}, nil)
}

func (c *Client) currentTransport() (*Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil, ErrNotStarted
	}
	if c.proc.State() == ProcExited {
		return nil, ErrProcessExited
	}
	return c.transport, nil
}

func (c *Client) handleModeChanged(_ string, params json.RawMessage) {
	var p struct {
		Mode      string `json:"mode"`
		Recording bool   `json:"recording"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.Mode == "" {
		return
	}
	if fn := c.config.OnModeChange; fn != nil {
		fn(p.Mode, p.Recording)
	}
}

func (c *Client) handleBufferFlush(_ string, params json.RawMessage) {
	var p struct {
		Document string `json:"document"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	if fn := c.config.OnFlush; fn != nil {
		fn(p.Document)
	}
}
