package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrialTimeout(t *testing.T) {
	plan := testPlan(1)
	plan.PayloadBytes = 10_000_000 // 4s at 20Mbit

	assert.Equal(t, 5*time.Second+8*time.Second+time.Second, trialTimeout(plan, time.Second))

	plan.TrialTimeout = 3 * time.Second
	assert.Equal(t, 3*time.Second, trialTimeout(plan, time.Second))
}

func TestClientCommand_Defaults(t *testing.T) {
	plan := testPlan(1)
	plan.Endpoint.Authority = ""
	plan.Endpoint.IdleTimeout = 1500 * time.Millisecond
	plan.Endpoint.LogLevel = ""
	plan.Endpoint.ClientNamespace = ""

	cmd := clientCommand(plan)
	assert.Equal(t, "https://test.com/stream-bytes/1000000", cmd.Args[0])
	assert.Equal(t, []string{"--idle-timeout", "2"}, cmd.Args[len(cmd.Args)-2:])
	assert.Nil(t, cmd.Env)
	assert.Empty(t, cmd.Namespace)
}

func TestServerCommand_NoCC(t *testing.T) {
	plan := testPlan(1)
	plan.Endpoint.CCAlgorithm = ""

	assert.Equal(t, []string{"--address", "0.0.0.0:9999"}, serverCommand(plan).Args)
}
