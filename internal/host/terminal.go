package host

import (
	"context"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// CommandDispatcher dispatches a named UI command. The terminal host
// uses it to fire the bridge commands bound to special keys.
type CommandDispatcher func(ctx context.Context, name string, args map[string]any)

// TerminalConfig configures the tcell host.
type TerminalConfig struct {
	// EscapeFirst and EscapeSecond are the composite-escape chord
	// characters. Typing either while the channel is not intercepted
	// fires the corresponding bridge command instead of inserting.
	EscapeFirst  rune
	EscapeSecond rune

	// Dispatch routes special keys to bridge commands. Required for
	// Run; nil disables command dispatch.
	Dispatch CommandDispatcher
}

// Terminal is a minimal tcell-backed host UI: a flat text buffer with a
// cursor and a status line. It exists to exercise the bridge end to
// end from a real terminal.
type Terminal struct {
	mu     sync.Mutex
	screen tcell.Screen
	config TerminalConfig

	lines  [][]rune
	row    int
	col    int
	status string

	interceptor TypeHandler
}

// NewTerminal creates a terminal host on a new tcell screen.
func NewTerminal(config TerminalConfig) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewTerminalWithScreen(screen, config), nil
}

// NewTerminalWithScreen creates a terminal host on the given screen.
// Used by tests with tcell's simulation screen.
func NewTerminalWithScreen(screen tcell.Screen, config TerminalConfig) *Terminal {
	return &Terminal{
		screen: screen,
		config: config,
		lines:  [][]rune{nil},
	}
}

// Init initializes the underlying screen.
func (t *Terminal) Init() error {
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnablePaste()
	return nil
}

// Fini restores the terminal.
func (t *Terminal) Fini() {
	t.screen.Fini()
}

// Intercept implements UI.
func (t *Terminal) Intercept(h TypeHandler) (*Interception, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interceptor != nil {
		return nil, ErrInterceptionActive
	}
	t.interceptor = h

	return NewInterception(func() {
		t.mu.Lock()
		t.interceptor = nil
		t.mu.Unlock()
	}), nil
}

// TypeText implements UI: inserts at the cursor via the default path.
func (t *Terminal) TypeText(text string) {
	t.mu.Lock()
	for _, r := range text {
		if r == '\n' || r == '\r' {
			t.breakLineLocked()
			continue
		}
		line := t.lines[t.row]
		line = append(line[:t.col], append([]rune{r}, line[t.col:]...)...)
		t.lines[t.row] = line
		t.col++
	}
	t.mu.Unlock()
	t.draw()
}

// DeleteLeft implements UI: removes the character before the cursor.
func (t *Terminal) DeleteLeft() {
	t.mu.Lock()
	switch {
	case t.col > 0:
		line := t.lines[t.row]
		t.lines[t.row] = append(line[:t.col-1], line[t.col:]...)
		t.col--
	case t.row > 0:
		prev := t.lines[t.row-1]
		t.col = len(prev)
		t.lines[t.row-1] = append(prev, t.lines[t.row]...)
		t.lines = append(t.lines[:t.row], t.lines[t.row+1:]...)
		t.row--
	}
	t.mu.Unlock()
	t.draw()
}

// SetEscapeKeys retunes the composite-escape chord characters.
func (t *Terminal) SetEscapeKeys(first, second rune) {
	t.mu.Lock()
	t.config.EscapeFirst = first
	t.config.EscapeSecond = second
	t.mu.Unlock()
}

// SetStatus updates the status line (typically the current mode).
func (t *Terminal) SetStatus(status string) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
	t.draw()
}

// Contents returns the buffer text. Primarily for tests.
func (t *Terminal) Contents() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	parts := make([]string, len(t.lines))
	for i, line := range t.lines {
		parts[i] = string(line)
	}
	return strings.Join(parts, "\n")
}

// Run polls terminal events until the context is cancelled or the user
// quits with Ctrl-Q.
func (t *Terminal) Run(ctx context.Context) error {
	t.draw()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go t.screen.ChannelEvents(events, quit)
	defer close(quit)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			keyEv, isKey := ev.(*tcell.EventKey)
			if !isKey {
				if _, isResize := ev.(*tcell.EventResize); isResize {
					t.screen.Sync()
					t.draw()
				}
				continue
			}
			if keyEv.Key() == tcell.KeyCtrlQ {
				return nil
			}
			t.handleKey(ctx, keyEv)
		}
	}
}

// handleKey translates one key event into typed text or a command.
func (t *Terminal) handleKey(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyRune:
		t.handleRune(ctx, ev.Rune())
	case tcell.KeyEnter:
		t.dispatchText("\r")
	case tcell.KeyTab:
		t.dispatchText("\t")
	case tcell.KeyEscape:
		if h := t.currentInterceptor(); h != nil {
			h("\x1b")
			return
		}
		t.dispatchCommand(ctx, "enterNormalMode", nil)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if h := t.currentInterceptor(); h != nil {
			h("\x08")
			return
		}
		t.DeleteLeft()
	case tcell.KeyCtrlO:
		if t.currentInterceptor() == nil {
			t.dispatchCommand(ctx, "insertCtrlEscape", nil)
		} else {
			t.dispatchText("\x0f")
		}
	default:
		// Remaining control keys carry their rune when tcell knows it.
		if r := ev.Rune(); r != 0 {
			t.dispatchText(string(r))
		}
	}
}

// handleRune routes a printable character, diverting composite-escape
// chord keys to their commands while the channel is not intercepted.
func (t *Terminal) handleRune(ctx context.Context, r rune) {
	if t.currentInterceptor() == nil {
		first, second := t.escapeKeys()
		args := map[string]any{"key": string(r)}
		switch r {
		case first:
			t.dispatchCommand(ctx, "compositeEscapeFirst", args)
			return
		case second:
			t.dispatchCommand(ctx, "compositeEscapeSecond", args)
			return
		}
	}
	t.dispatchText(string(r))
}

// dispatchText delivers text to the interceptor when one is active,
// otherwise to default insertion.
func (t *Terminal) dispatchText(text string) {
	if h := t.currentInterceptor(); h != nil {
		h(text)
		return
	}
	t.TypeText(text)
}

func (t *Terminal) dispatchCommand(ctx context.Context, name string, args map[string]any) {
	if t.config.Dispatch != nil {
		t.config.Dispatch(ctx, name, args)
	}
}

func (t *Terminal) escapeKeys() (rune, rune) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.EscapeFirst, t.config.EscapeSecond
}

func (t *Terminal) currentInterceptor() TypeHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interceptor
}

// draw repaints the buffer and status line.
func (t *Terminal) draw() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Clear()
	width, height := t.screen.Size()

	textRows := height - 1
	for y := 0; y < textRows && y < len(t.lines); y++ {
		for x, r := range t.lines[y] {
			if x >= width {
				break
			}
			t.screen.SetContent(x, y, r, nil, tcell.StyleDefault)
		}
	}

	statusStyle := tcell.StyleDefault.Reverse(true)
	x := 0
	for _, r := range t.status {
		if x >= width {
			break
		}
		t.screen.SetContent(x, height-1, r, nil, statusStyle)
		x++
	}
	for ; x < width; x++ {
		t.screen.SetContent(x, height-1, ' ', nil, statusStyle)
	}

	t.screen.ShowCursor(t.col, t.row)
	t.screen.Show()
}

// breakLineLocked splits the current line at the cursor.
func (t *Terminal) breakLineLocked() {
	line := t.lines[t.row]
	rest := append([]rune(nil), line[t.col:]...)
	t.lines[t.row] = line[:t.col]
	t.lines = append(t.lines[:t.row+1], append([][]rune{rest}, t.lines[t.row+1:]...)...)
	t.row++
	t.col = 0
}
