package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// NotificationHandler handles a notification from the engine.
type NotificationHandler func(method string, params json.RawMessage)

// request is a JSON-RPC 2.0 request or notification.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the engine.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("engine: rpc error %d: %s", e.Code, e.Message)
}

// Transport speaks JSON-RPC 2.0 with Content-Length framing over the
// engine process's stdio.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	mu       sync.Mutex
	nextID   atomic.Int64
	pending  map[int64]chan *response
	handlers map[string]NotificationHandler

	closed atomic.Bool
	done   chan struct{}
}

// NewTransport creates a transport over the given streams. The closer
// may be nil.
func NewTransport(r io.Reader, w io.Writer, c io.Closer) *Transport {
	return &Transport{
		reader:   bufio.NewReaderSize(r, 32*1024),
		writer:   w,
		closer:   c,
		pending:  make(map[int64]chan *response),
		handlers: make(map[string]NotificationHandler),
		done:     make(chan struct{}),
	}
}

// Start begins reading engine messages.
func (t *Transport) Start(ctx context.Context) {
	go t.readLoop(ctx)
}

// Close shuts the transport down. In-flight calls fail with
// ErrShutdown.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)

	// Drop pending calls; waiters unblock via t.done.
	t.mu.Lock()
	t.pending = make(map[int64]chan *response)
	t.mu.Unlock()

	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Call sends a request and waits for the engine's response.
func (t *Transport) Call(ctx context.Context, method string, params any, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	id := t.nextID.Add(1)
	ch := make(chan *response, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	req := &request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := t.send(req); err != nil {
		return fmt.Errorf("engine: send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("engine: unmarshal %s result: %w", method, err)
			}
		}
		return nil
	}
}

// Notify sends a notification; no response is expected.
func (t *Transport) Notify(method string, params any) error {
	if t.closed.Load() {
		return ErrShutdown
	}
	return t.send(&request{JSONRPC: "2.0", Method: method, Params: params})
}

// OnNotification registers a handler for an engine notification
// method. Must be called before Start.
func (t *Transport) OnNotification(method string, handler NotificationHandler) {
	t.mu.Lock()
	t.handlers[method] = handler
	t.mu.Unlock()
}

// send writes one framed message.
func (t *Transport) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintf(t.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// readLoop reads and dispatches messages until shutdown or EOF.
func (t *Transport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		msg, err := t.readMessage()
		if err != nil {
			if t.closed.Load() || err == io.EOF || err == io.ErrClosedPipe {
				return
			}
			continue
		}
		t.dispatch(msg)
	}
}

// readMessage reads one Content-Length framed message body.
func (t *Transport) readMessage() ([]byte, error) {
	var contentLength int
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if rest, ok := strings.CutPrefix(strings.ToLower(line), "content-length:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return nil, fmt.Errorf("bad content-length %q: %w", line, err)
			}
			contentLength = n
		}
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// dispatch routes a decoded message to a waiting caller or a
// notification handler.
func (t *Transport) dispatch(data []byte) {
	var probe struct {
		ID     *int64          `json:"id"`
		Method string          `json:"method"`
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return
	}

	if probe.ID != nil && probe.Method == "" {
		t.mu.Lock()
		ch, ok := t.pending[*probe.ID]
		if ok {
			delete(t.pending, *probe.ID)
		}
		t.mu.Unlock()
		if ok {
			ch <- &response{ID: *probe.ID, Result: probe.Result, Error: probe.Error}
		}
		return
	}

	if probe.Method != "" {
		t.mu.Lock()
		handler := t.handlers[probe.Method]
		t.mu.Unlock()
		if handler != nil {
			var params struct {
				Params json.RawMessage `json:"params"`
			}
			_ = json.Unmarshal(data, &params)
			handler(probe.Method, params.Params)
		}
	}
}
