package orchestrator

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"quicperf/internal/core"
	"quicperf/internal/process"
)

const (
	// defaultTrialMargin is added to the derived trial deadline.
	defaultTrialMargin = 10 * time.Second
	// teardownTimeout bounds server stop and network clear.
	teardownTimeout = 30 * time.Second
)

func logEnv(e core.EndpointConfig) []string {
	if e.LogLevel == "" {
		return nil
	}
	return []string{"RUST_LOG=" + e.LogLevel}
}

// serverCommand builds the server invocation for plan.
func serverCommand(plan core.RunPlan) process.Command {
	e := plan.Endpoint
	args := []string{"--address", e.BindAddress()}
	if e.CCAlgorithm != "" {
		args = append(args, "--cc-algorithm", e.CCAlgorithm)
	}
	return process.Command{
		Path:      e.ServerBinary,
		Args:      args,
		Env:       logEnv(e),
		Namespace: e.ServerNamespace,
	}
}

// clientCommand builds one trial's client invocation for plan.
func clientCommand(plan core.RunPlan) process.Command {
	e := plan.Endpoint
	authority := e.Authority
	if authority == "" {
		authority = "test.com"
	}
	args := []string{
		fmt.Sprintf("https://%s/stream-bytes/%d", authority, plan.PayloadBytes),
		"--no-verify",
		"--connect-to", e.ConnectAddress(),
	}
	if e.IdleTimeout > 0 {
		secs := int64(math.Ceil(e.IdleTimeout.Seconds()))
		args = append(args, "--idle-timeout", strconv.FormatInt(secs, 10))
	}
	return process.Command{
		Path:      e.ClientBinary,
		Args:      args,
		Env:       logEnv(e),
		Namespace: e.ClientNamespace,
	}
}

// trialTimeout returns the deadline for one client run: the configured value,
// or the idle timeout plus twice the expected transfer time plus margin.
func trialTimeout(plan core.RunPlan, margin time.Duration) time.Duration {
	if plan.TrialTimeout > 0 {
		return plan.TrialTimeout
	}
	return plan.Endpoint.IdleTimeout + 2*plan.ExpectedTransfer() + margin
}
