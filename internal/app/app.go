// Package app wires the keybridge components together: configuration,
// logging, the engine client, mode state, document synchronization, the
// input router, and the host UI.
package app

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dshills/keybridge/internal/command"
	"github.com/dshills/keybridge/internal/config"
	"github.com/dshills/keybridge/internal/docsync"
	"github.com/dshills/keybridge/internal/engine"
	"github.com/dshills/keybridge/internal/host"
	"github.com/dshills/keybridge/internal/modal"
	"github.com/dshills/keybridge/internal/router"
)

// Options are the command-line options.
type Options struct {
	// ConfigPath locates the TOML configuration file. Empty uses the
	// built-in defaults.
	ConfigPath string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// Watch enables live configuration reload.
	Watch bool
}

// App owns the bridge component graph and its lifecycle.
type App struct {
	mu sync.Mutex

	opts   Options
	cfg    config.Config
	logger *Logger
	logOut io.Closer

	modes  *modal.State
	engine *engine.Client
	coord  *docsync.Coordinator
	layout *docsync.LayoutSync

	terminal *host.Terminal
	router   *router.Router
	registry *command.Registry
	group    *command.Group
	watcher  *config.Watcher

	activeDoc string
	started   bool

	shutdownOnce sync.Once
}

// New loads configuration and constructs the engine-facing components.
// The host UI is attached with SetTerminal before Start.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		opts:     opts,
		cfg:      cfg,
		modes:    modal.NewState(),
		registry: command.NewRegistry(),
	}

	if err := a.initLogger(); err != nil {
		return nil, err
	}

	a.engine = engine.NewClient(engine.ClientConfig{
		Command:      cfg.Engine.Command,
		Args:         cfg.Engine.Args,
		KillWait:     cfg.Engine.KillTimeout(),
		OnModeChange: a.handleModeChange,
		OnFlush:      a.handleFlush,
		OnExit:       a.handleEngineExit,
	})
	a.coord = docsync.NewCoordinator(a.engine)
	a.layout = docsync.NewLayoutSync(a.engine)
	return a, nil
}

// initLogger builds the logger from config, honoring the command-line
// level override and an optional log file.
func (a *App) initLogger() error {
	level := a.cfg.Log.Level
	if a.opts.LogLevel != "" {
		level = a.opts.LogLevel
	}

	out := io.Writer(os.Stderr)
	if a.cfg.Log.File != "" {
		f, err := os.OpenFile(a.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		a.logOut = f
		out = f
	}

	a.logger = NewLogger(LoggerConfig{
		Level:  ParseLogLevel(level),
		Output: out,
		Prefix: "keybridge",
	})
	return nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() *Logger {
	return a.logger
}

// Registry returns the command registry.
func (a *App) Registry() *command.Registry {
	return a.registry
}

// Modes returns the engine-owned mode mirror.
func (a *App) Modes() *modal.State {
	return a.modes
}

// SetTerminal attaches the host UI. Must be called before Start.
func (a *App) SetTerminal(t *host.Terminal) {
	a.mu.Lock()
	a.terminal = t
	a.mu.Unlock()
}

// SetActiveDocument names the document whose completion lock gates
// insert-mode entry.
func (a *App) SetActiveDocument(name string) {
	a.mu.Lock()
	a.activeDoc = name
	a.mu.Unlock()
}

// ActiveDocument returns the current active document name.
func (a *App) ActiveDocument() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeDoc
}

// BeginDocumentChange opens a completion lock for the document. The
// lock resolves when the engine acknowledges the flush.
func (a *App) BeginDocumentChange(document string) *docsync.Completion {
	return a.coord.Begin(document)
}

// Start launches the engine process, builds the router, registers the
// bridge commands, and starts the config watcher if enabled.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	terminal := a.terminal
	cfg := a.cfg
	a.mu.Unlock()

	if terminal == nil {
		return ErrNoHost
	}

	if err := a.engine.Start(ctx); err != nil {
		return err
	}
	a.logger.WithComponent("engine").Info("started %s", cfg.Engine.Command)

	routerLog := a.logger.WithComponent("router")
	rt, err := router.New(terminal, a.engine, a.coord, a.layout, a.modes, router.Config{
		ActiveDocument: a.ActiveDocument,
		EscapeWindow:   cfg.Escape.Window(),
		OnError: func(op string, err error) {
			routerLog.Error("%s: %v", op, err)
		},
	})
	if err != nil {
		_ = a.engine.Close()
		return err
	}

	group, err := rt.RegisterCommands(a.registry)
	if err != nil {
		rt.Close()
		_ = a.engine.Close()
		return err
	}

	a.mu.Lock()
	a.router = rt
	a.group = group
	a.started = true
	a.mu.Unlock()

	if a.opts.Watch && a.opts.ConfigPath != "" {
		if err := a.startWatcher(); err != nil {
			a.logger.WithComponent("config").Warn("watch disabled: %v", err)
		}
	}

	terminal.SetStatus(statusLine(a.modes.Mode(), a.modes.IsRecording()))
	return nil
}

// startWatcher begins live configuration reload.
func (a *App) startWatcher() error {
	log := a.logger.WithComponent("config")
	w, err := config.Watch(a.opts.ConfigPath,
		a.applyReload,
		func(err error) { log.Error("reload: %v", err) },
	)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.watcher = w
	a.mu.Unlock()

	log.Info("watching %s", w.Path())
	return nil
}

// applyReload retunes the live-tunable settings from a reloaded file.
// Engine spawn settings are fixed for the process lifetime.
func (a *App) applyReload(cfg config.Config) {
	a.mu.Lock()
	a.cfg.Escape = cfg.Escape
	a.cfg.Log.Level = cfg.Log.Level
	rt := a.router
	terminal := a.terminal
	a.mu.Unlock()

	if rt != nil {
		rt.SetEscapeWindow(cfg.Escape.Window())
	}
	if terminal != nil {
		terminal.SetEscapeKeys(cfg.Escape.FirstRune(), cfg.Escape.SecondRune())
	}
	if a.opts.LogLevel == "" {
		a.logger.SetLevel(ParseLogLevel(cfg.Log.Level))
	}

	a.logger.WithComponent("config").Info("reloaded: chord %s%s window %v",
		cfg.Escape.FirstKey, cfg.Escape.SecondKey, cfg.Escape.Window())
}

// DispatchCommand routes a named UI command through the registry. Used
// as the terminal host's dispatcher; failures are logged, not fatal.
func (a *App) DispatchCommand(ctx context.Context, name string, args map[string]any) {
	if err := a.registry.Dispatch(ctx, name, args); err != nil {
		a.logger.WithComponent("command").Error("%s: %v", name, err)
	}
}

// handleModeChange mirrors an engine mode notification into local state
// and the status line.
func (a *App) handleModeChange(mode string, recording bool) {
	a.modes.Set(modal.Mode(mode), recording)

	a.mu.Lock()
	terminal := a.terminal
	a.mu.Unlock()
	if terminal != nil {
		terminal.SetStatus(statusLine(modal.Mode(mode), recording))
	}
}

// handleFlush resolves the document's completion lock.
func (a *App) handleFlush(document string) {
	a.coord.Resolve(document, nil)
}

// handleEngineExit surfaces an engine process exit.
func (a *App) handleEngineExit(err error) {
	log := a.logger.WithComponent("engine")
	if err != nil {
		log.Error("process exited: %v", err)
		return
	}
	log.Info("process exited")
}

// Shutdown tears the bridge down in reverse construction order.
// Idempotent.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.mu.Lock()
		watcher := a.watcher
		group := a.group
		rt := a.router
		logOut := a.logOut
		a.mu.Unlock()

		if watcher != nil {
			_ = watcher.Close()
		}
		if group != nil {
			// Disposing the group also closes the router.
			group.Dispose()
		} else if rt != nil {
			rt.Close()
		}
		if err := a.engine.Close(); err != nil {
			a.logger.WithComponent("engine").Error("close: %v", err)
		}
		if logOut != nil {
			_ = logOut.Close()
		}
	})
}

// statusLine renders the mode indicator for the host status line.
func statusLine(mode modal.Mode, recording bool) string {
	s := "-- " + strings.ToUpper(string(mode)) + " --"
	if recording {
		s += " (recording)"
	}
	return s
}
