// Package process spawns the client and server executables.
package process

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Command describes one executable invocation.
type Command struct {
	Path      string
	Args      []string
	Env       []string // KEY=VALUE pairs added to the inherited environment
	Namespace string   // network namespace; empty runs in the current one
}

// argv returns the program and arguments, wrapped in "ip netns exec" when a
// namespace is set.
func (c Command) argv() (string, []string) {
	if c.Namespace == "" {
		return c.Path, c.Args
	}
	args := append([]string{"netns", "exec", c.Namespace, c.Path}, c.Args...)
	return "ip", args
}

func (c Command) String() string {
	name, args := c.argv()
	parts := make([]string, 0, len(c.Env)+1+len(args))
	parts = append(parts, c.Env...)
	parts = append(parts, name)
	parts = append(parts, args...)
	return strings.Join(parts, " ")
}

// Output is the result of a command run to completion.
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Success reports whether the command exited with status 0.
func (o Output) Success() bool { return o.ExitCode == 0 }

// LineSink receives captured output one line at a time, in arrival order.
type LineSink interface {
	Append(line string)
}

// Handle controls a process started with Runner.Start.
type Handle interface {
	Pid() int
	// Stop terminates the process, waits for it to exit and for its captured
	// output to be flushed. Calling Stop more than once is a no-op.
	Stop(ctx context.Context) error
	// Done is closed when the process has exited.
	Done() <-chan struct{}
}

// Runner spawns processes. Run blocks until exit; Start returns immediately
// and streams stderr into a LineSink.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
	Start(ctx context.Context, cmd Command, stderr LineSink) (Handle, error)
}

// SpawnError reports that an executable could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
