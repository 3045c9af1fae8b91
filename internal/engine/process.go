package engine

import (
	"fmt"
	"io"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ProcState is the lifecycle state of the engine process.
type ProcState int

const (
	// ProcCreated indicates the process has not been started yet.
	ProcCreated ProcState = iota
	// ProcRunning indicates the process is running.
	ProcRunning
	// ProcExited indicates the process has exited.
	ProcExited
)

// String returns a human-readable state name.
func (s ProcState) String() string {
	switch s {
	case ProcCreated:
		return "created"
	case ProcRunning:
		return "running"
	case ProcExited:
		return "exited"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Process is the managed engine child process.
type Process struct {
	// ID uniquely identifies this process instance.
	ID string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	state    atomic.Int32
	exitErr  atomic.Value // error
	done     chan struct{}
	killWait time.Duration
}

// NewProcess prepares an engine process. killWait bounds how long Stop
// waits after SIGTERM before killing.
func NewProcess(command string, args []string, killWait time.Duration) *Process {
	return &Process{
		ID:       uuid.NewString(),
		cmd:      exec.Command(command, args...),
		done:     make(chan struct{}),
		killWait: killWait,
	}
}

// Start launches the process with piped stdio and begins exit
// tracking.
func (p *Process) Start() error {
	if ProcState(p.state.Load()) != ProcCreated {
		return ErrAlreadyStarted
	}

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("engine: stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine: stdout pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("engine: start %s: %w", p.cmd.Path, err)
	}

	p.stdin = stdin
	p.stdout = stdout
	p.state.Store(int32(ProcRunning))

	go func() {
		err := p.cmd.Wait()
		if err != nil {
			p.exitErr.Store(err)
		}
		p.state.Store(int32(ProcExited))
		close(p.done)
	}()

	return nil
}

// Stdin returns the process's stdin pipe. Valid after Start.
func (p *Process) Stdin() io.WriteCloser { return p.stdin }

// Stdout returns the process's stdout pipe. Valid after Start.
func (p *Process) Stdout() io.ReadCloser { return p.stdout }

// State returns the current process state.
func (p *Process) State() ProcState {
	return ProcState(p.state.Load())
}

// Done returns a channel closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the error from Wait, if any. Valid once Done is
// closed.
func (p *Process) ExitErr() error {
	if err, ok := p.exitErr.Load().(error); ok {
		return err
	}
	return nil
}

// Stop terminates the process: close stdin, wait up to killWait for a
// clean exit, then kill.
func (p *Process) Stop() error {
	if ProcState(p.state.Load()) != ProcRunning {
		return nil
	}

	// Closing stdin asks a stdio-driven engine to exit.
	if p.stdin != nil {
		_ = p.stdin.Close()
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(p.killWait):
	}

	if err := p.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("engine: kill: %w", err)
	}
	<-p.done
	return nil
}
