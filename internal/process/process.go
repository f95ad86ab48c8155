package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/smazurov/chrometester/internal/logging"
)

// ExitCodeKilled is reported when a process had to be force-killed.
const ExitCodeKilled = 137

// Process supervises one external executable.
type Process struct {
	id              string
	path            string
	args            []string
	dir             string
	logger          logging.Logger
	processLogger   logging.Logger // logger for process output (nil = use logger)
	logParser       LogParser      // nil = every line logged at info
	outputHandler   OutputHandler
	gracefulTimeout time.Duration // interrupt -> kill
	killTimeout     time.Duration // kill -> give up waiting

	mu        sync.Mutex
	cmd       *exec.Cmd
	state     State
	startedAt time.Time
	exitCode  int
	lastError error
	done      chan struct{}
}

// NewProcess creates a supervisor for path. The process is not started.
// dir is the working directory; empty means the caller's.
func NewProcess(id, path string, args []string, dir string, logger logging.Logger) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{
		id:              id,
		path:            path,
		args:            args,
		dir:             dir,
		logger:          logger,
		state:           StateIdle,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
}

// SetOutputHandler receives every stdout/stderr line of the process.
// Must be called before Start.
func (p *Process) SetOutputHandler(handler OutputHandler) {
	p.outputHandler = handler
}

// SetLogParser sets the logger used for process output and the parser that
// extracts a level from each line. Must be called before Start.
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// Start launches the process and returns without waiting for it to become
// ready. Launch failures are returned as is, wrapped with the path.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateRunning || p.state == StateStopping {
		return fmt.Errorf("process %s already running", p.id)
	}

	cmd := exec.Command(p.path, p.args...)
	cmd.Dir = p.dir
	cmd.WaitDelay = p.killTimeout
	configureCommand(cmd)

	var writers []*lineWriter
	if p.capturing() {
		stdout := newLineWriter(func(line string) { p.handleLine("stdout", line) })
		stderr := newLineWriter(func(line string) { p.handleLine("stderr", line) })
		cmd.Stdout, cmd.Stderr = stdout, stderr
		writers = append(writers, stdout, stderr)
	}

	if err := cmd.Start(); err != nil {
		p.state = StateError
		p.lastError = err
		p.logger.Error("Failed to start process", "id", p.id, "path", p.path, "dir", p.dir, "error", err)
		return fmt.Errorf("start %s: %w", p.path, err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done
	p.state = StateRunning
	p.startedAt = time.Now()
	p.exitCode = 0
	p.lastError = nil

	p.logger.Info("Process started", "id", p.id, "pid", cmd.Process.Pid, "path", p.path, "dir", p.dir)

	go p.wait(cmd, done, writers)
	return nil
}

// wait reaps the process and records how it ended.
func (p *Process) wait(cmd *exec.Cmd, done chan struct{}, writers []*lineWriter) {
	err := cmd.Wait()
	for _, w := range writers {
		w.Flush()
	}
	exitCode := exitCodeFromError(err)

	p.mu.Lock()
	requested := p.state == StateStopping
	p.exitCode = exitCode
	switch {
	case requested, err == nil:
		p.state = StateStopped
	default:
		p.state = StateError
		p.lastError = err
	}
	p.mu.Unlock()

	if requested {
		p.logger.Info("Process stopped", "id", p.id, "exit_code", exitCode)
	} else {
		p.logger.Warn("Process exited", "id", p.id, "exit_code", exitCode, "error", err)
	}
	close(done)
}

// Stop terminates the process: interrupt, then kill after the graceful
// timeout. It returns the exit code. Calling Stop on a process that is not
// running returns the last exit code (0 if it never ran).
func (p *Process) Stop() int {
	p.mu.Lock()
	switch p.state {
	case StateRunning:
	case StateStopping:
		done := p.done
		p.mu.Unlock()
		select {
		case <-done:
		case <-time.After(p.gracefulTimeout + p.killTimeout):
		}
		return p.Info().ExitCode
	default:
		code := p.exitCode
		p.mu.Unlock()
		return code
	}
	p.state = StateStopping
	cmd, done := p.cmd, p.done
	p.mu.Unlock()

	p.logger.Info("Stopping process", "id", p.id, "pid", cmd.Process.Pid)
	if err := interrupt(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to interrupt process", "id", p.id, "error", err)
	}

	select {
	case <-done:
		return p.Info().ExitCode
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "id", p.id, "timeout", p.gracefulTimeout)
	if err := kill(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("Failed to kill process", "id", p.id, "error", err)
	}
	select {
	case <-done:
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal", "id", p.id)
	}

	p.mu.Lock()
	p.exitCode = ExitCodeKilled
	p.mu.Unlock()
	return ExitCodeKilled
}

// Done is closed when the process exits. For a process that was never
// started it is already closed.
func (p *Process) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.done
}

// State returns the current state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Info returns a snapshot of the process.
func (p *Process) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := Info{
		ID:        p.id,
		Path:      p.path,
		Dir:       p.dir,
		State:     p.state,
		StartedAt: p.startedAt,
		ExitCode:  p.exitCode,
		LastError: p.lastError,
	}
	if p.cmd != nil && p.cmd.Process != nil {
		info.PID = p.cmd.Process.Pid
	}
	return info
}

// exitCodeFromError returns 0 for nil, the exit status for an ExitError
// (-1 when the process died from a signal) and 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
