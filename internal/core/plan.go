package core

import (
	"fmt"
	"time"
)

// NetworkProfile describes a simulated network condition.
// Only the commands are executed; the numeric fields are recorded for reports.
type NetworkProfile struct {
	Name         string `json:"name"`
	ApplyCommand string `json:"applyCommand"`
	ClearCommand string `json:"clearCommand"`
	DelayMS      uint64 `json:"delayMs"`
	LossPct      uint64 `json:"lossPct"`
	RateMbit     uint64 `json:"rateMbit"`
}

// EndpointConfig describes the client and server executables and how they
// reach each other. Shared read-only by server and client spawns.
type EndpointConfig struct {
	ClientBinary    string        `json:"clientBinary"`
	ServerBinary    string        `json:"serverBinary"`
	ServerAddress   string        `json:"serverAddress"`
	ServerBind      string        `json:"serverBind"`
	ServerPort      int           `json:"serverPort"`
	CCAlgorithm     string        `json:"ccAlgorithm"`
	LogLevel        string        `json:"logLevel"`
	IdleTimeout     time.Duration `json:"idleTimeout"`
	Authority       string        `json:"authority"`
	ClientNamespace string        `json:"clientNamespace,omitempty"`
	ServerNamespace string        `json:"serverNamespace,omitempty"`
}

// ConnectAddress returns the host:port the client connects to.
func (e EndpointConfig) ConnectAddress() string {
	return fmt.Sprintf("%s:%d", e.ServerAddress, e.ServerPort)
}

// BindAddress returns the host:port the server listens on.
func (e EndpointConfig) BindAddress() string {
	return fmt.Sprintf("%s:%d", e.ServerBind, e.ServerPort)
}

// RunPlan is the immutable description of one benchmark run.
type RunPlan struct {
	ID           string         `json:"id"`
	Network      NetworkProfile `json:"network"`
	Endpoint     EndpointConfig `json:"endpoint"`
	PayloadBytes uint64         `json:"payloadBytes"`
	Trials       int            `json:"trials"`
	Warmup       int            `json:"warmup"`
	Interval     time.Duration  `json:"interval"`
	// TrialTimeout bounds one client run; zero derives it from the
	// idle timeout and the expected transfer time.
	TrialTimeout time.Duration `json:"trialTimeout,omitempty"`
}

// Validate checks the invariants a plan must satisfy before any trial runs.
func (p RunPlan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("run plan: missing run id")
	}
	if p.Trials < 1 {
		return fmt.Errorf("run plan: trial count must be >= 1, got %d", p.Trials)
	}
	if p.Warmup < 0 {
		return fmt.Errorf("run plan: warmup must be >= 0, got %d", p.Warmup)
	}
	if p.PayloadBytes == 0 {
		return fmt.Errorf("run plan: payload size must be > 0")
	}
	if p.Endpoint.ClientBinary == "" || p.Endpoint.ServerBinary == "" {
		return fmt.Errorf("run plan: client and server binaries are required")
	}
	if p.TrialTimeout < 0 {
		return fmt.Errorf("run plan: trial timeout must be >= 0, got %v", p.TrialTimeout)
	}
	if p.Endpoint.ServerPort <= 0 || p.Endpoint.ServerPort > 65535 {
		return fmt.Errorf("run plan: invalid server port %d", p.Endpoint.ServerPort)
	}
	return nil
}

// ExpectedTransfer estimates how long one payload takes at the profile's
// rate limit. Zero when the rate is unknown.
func (p RunPlan) ExpectedTransfer() time.Duration {
	if p.Network.RateMbit == 0 {
		return 0
	}
	seconds := float64(p.PayloadBytes*8) / float64(p.Network.RateMbit*1_000_000)
	return time.Duration(seconds * float64(time.Second))
}
