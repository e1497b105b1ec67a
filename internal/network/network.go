// Package network applies and clears simulated network profiles.
//
// A profile is an opaque shell command (typically a tc/netem script); this
// package only runs it and checks its exit status.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quicperf/internal/core"
	"quicperf/internal/process"
)

// Controller applies and clears one network profile.
type Controller interface {
	// Apply installs the profile. Implementations reset any stale policy first.
	Apply(ctx context.Context) error
	// Clear removes the profile. Must be idempotent.
	Clear(ctx context.Context) error
}

// CommandError reports a profile command that could not run or exited non-zero.
type CommandError struct {
	Op       string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network %s: %q: %v", e.Op, e.Command, e.Err)
	}
	msg := fmt.Sprintf("network %s: %q exited with status %d", e.Op, e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ShellController runs the profile's commands through "sh -c".
type ShellController struct {
	Profile core.NetworkProfile
	Runner  process.Runner
	Shell   string
	Logger  *slog.Logger
}

// NewShellController creates a controller for profile.
func NewShellController(profile core.NetworkProfile, runner process.Runner, logger *slog.Logger) *ShellController {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShellController{
		Profile: profile,
		Runner:  runner,
		Shell:   "sh",
		Logger:  logger.With("profile", profile.Name),
	}
}

// Apply runs the clear command first so a crashed earlier run cannot leave
// its policy in place, then the profile's apply command.
func (c *ShellController) Apply(ctx context.Context) error {
	if err := c.run(ctx, "reset", c.Profile.ClearCommand); err != nil {
		return err
	}
	if err := c.run(ctx, "apply", c.Profile.ApplyCommand); err != nil {
		return err
	}
	c.Logger.Info("network profile applied",
		"delay_ms", c.Profile.DelayMS, "loss_pct", c.Profile.LossPct, "rate_mbit", c.Profile.RateMbit)
	return nil
}

// Clear runs the profile's clear command.
func (c *ShellController) Clear(ctx context.Context) error {
	if err := c.run(ctx, "clear", c.Profile.ClearCommand); err != nil {
		return err
	}
	c.Logger.Info("network profile cleared")
	return nil
}

func (c *ShellController) run(ctx context.Context, op, command string) error {
	if strings.TrimSpace(command) == "" {
		c.Logger.Debug("no command configured, skipping", "op", op)
		return nil
	}

	shell := c.Shell
	if shell == "" {
		shell = "sh"
	}

	out, err := c.Runner.Run(ctx, process.Command{Path: shell, Args: []string{"-c", command}})
	if err != nil {
		return &CommandError{Op: op, Command: command, ExitCode: out.ExitCode, Err: err}
	}
	if !out.Success() {
		return &CommandError{
			Op:       op,
			Command:  command,
			ExitCode: out.ExitCode,
			Stderr:   strings.TrimSpace(string(out.Stderr)),
		}
	}
	return nil
}
