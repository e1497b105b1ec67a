package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

const defaultStopTimeout = 5 * time.Second

// ExecRunner runs commands as local child processes.
type ExecRunner struct {
	// StopTimeout bounds how long Stop waits after SIGTERM before SIGKILL,
	// and how long Wait waits for output pipes once a process has exited.
	StopTimeout time.Duration
	Debug       *DebugLogger
	Logger      *slog.Logger
}

// NewExecRunner creates an ExecRunner with default timeouts.
func NewExecRunner(logger *slog.Logger, debug *DebugLogger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{
		StopTimeout: defaultStopTimeout,
		Debug:       debug,
		Logger:      logger,
	}
}

func (r *ExecRunner) stopTimeout() time.Duration {
	if r.StopTimeout > 0 {
		return r.StopTimeout
	}
	return defaultStopTimeout
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *ExecRunner) configure(cmd *exec.Cmd, c Command) {
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.WaitDelay = r.stopTimeout()
	setProcessGroup(cmd)
}

// Run starts the command, waits for it to exit and returns its captured
// output. A non-zero exit status is reported in Output, not as an error.
// Errors are a *SpawnError when the process could not start, or wrap
// ctx.Err() when the context ended the process.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Output, error) {
	name, args := c.argv()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error { return kill(cmd) }
	r.configure(cmd, c)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Debug.LogCommand("run", c)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		spawnErr := &SpawnError{Command: c.String(), Err: err}
		r.Debug.LogError("run", spawnErr, time.Since(start))
		return Output{ExitCode: -1}, spawnErr
	}

	waitErr := cmd.Wait()
	out := Output{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	r.Debug.LogOutput("run", out)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%s: %w", c.Path, ctxErr)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return out, fmt.Errorf("waiting for %s: %w", c.Path, waitErr)
	}
	return out, nil
}

// Start launches the command and streams its stderr into sink, one line at a
// time, until the process exits. Stdout is discarded. The context only
// bounds the start itself; use Handle.Stop to end the process.
func (r *ExecRunner) Start(ctx context.Context, c Command, sink LineSink) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SpawnError{Command: c.String(), Err: err}
	}

	name, args := c.argv()
	cmd := exec.Command(name, args...)
	r.configure(cmd, c)
	lw := newLineWriter(sink)
	cmd.Stderr = lw

	r.Debug.LogCommand("start", c)
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: c.String(), Err: err}
	}

	h := &execHandle{
		cmd:     cmd,
		lw:      lw,
		done:    make(chan struct{}),
		timeout: r.stopTimeout(),
		logger:  r.logger().With("pid", cmd.Process.Pid, "command", c.Path),
	}
	go h.wait()

	h.logger.Debug("process started")
	return h, nil
}

type execHandle struct {
	cmd      *exec.Cmd
	lw       *lineWriter
	done     chan struct{}
	waitErr  error
	timeout  time.Duration
	logger   *slog.Logger
	stopOnce sync.Once
	stopErr  error
	mu       sync.Mutex
}

func (h *execHandle) wait() {
	err := h.cmd.Wait()
	h.lw.Flush()
	h.mu.Lock()
	h.waitErr = err
	h.mu.Unlock()
	close(h.done)
}

func (h *execHandle) Pid() int { return h.cmd.Process.Pid }

func (h *execHandle) Done() <-chan struct{} { return h.done }

func (h *execHandle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.stopErr = h.stop(ctx)
	})
	return h.stopErr
}

func (h *execHandle) stop(ctx context.Context) error {
	select {
	case <-h.done:
		h.logger.Warn("process exited before stop", "error", h.exitError())
		return h.exitError()
	default:
	}

	h.logger.Debug("sending SIGTERM")
	if err := terminate(h.cmd); err != nil {
		h.logger.Debug("SIGTERM failed", "error", err)
	}

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return nil
	case <-timer.C:
		h.logger.Warn("process ignored SIGTERM, killing", "timeout", h.timeout)
	case <-ctx.Done():
		h.logger.Warn("stop cancelled, killing", "error", ctx.Err())
	}

	if err := kill(h.cmd); err != nil {
		h.logger.Debug("SIGKILL failed", "error", err)
	}
	// WaitDelay bounds Wait once the process is gone, so this returns.
	<-h.done
	return nil
}

// exitError reports an unexpected exit; exits caused by Stop are not errors.
func (h *execHandle) exitError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.waitErr == nil {
		return nil
	}
	return fmt.Errorf("process %d exited: %w", h.cmd.Process.Pid, h.waitErr)
}
