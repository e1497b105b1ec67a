package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicperf/internal/core"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func shell(sh, script string) Command {
	return Command{Path: sh, Args: []string{"-c", script}}
}

func TestCommand_Argv(t *testing.T) {
	c := Command{Path: "/bin/client", Args: []string{"https://test.com/stream-bytes/1000"}, Env: []string{"RUST_LOG=info"}}

	name, args := c.argv()
	assert.Equal(t, "/bin/client", name)
	assert.Equal(t, []string{"https://test.com/stream-bytes/1000"}, args)
	assert.Equal(t, "RUST_LOG=info /bin/client https://test.com/stream-bytes/1000", c.String())
}

func TestCommand_ArgvNamespace(t *testing.T) {
	c := Command{Path: "/bin/server", Args: []string{"--address", "0.0.0.0:9999"}, Namespace: "ns_s1"}

	name, args := c.argv()
	assert.Equal(t, "ip", name)
	assert.Equal(t, []string{"netns", "exec", "ns_s1", "/bin/server", "--address", "0.0.0.0:9999"}, args)
	// argv must not alias the command's own slice
	assert.Equal(t, []string{"--address", "0.0.0.0:9999"}, c.Args)
}

func TestLineWriter(t *testing.T) {
	rec := &core.LineRecorder{}
	w := newLineWriter(rec)

	_, _ = w.Write([]byte("first\r\nsec"))
	_, _ = w.Write([]byte("ond\n\nthi"))
	assert.Equal(t, []string{"first", "second", ""}, rec.Lines())

	w.Flush()
	assert.Equal(t, []string{"first", "second", "", "thi"}, rec.Lines())

	w.Flush()
	assert.Len(t, rec.Lines(), 4)
}

func TestExecRunner_RunCapturesOutput(t *testing.T) {
	sh := requireShell(t)
	r := NewExecRunner(nil, nil)

	out, err := r.Run(context.Background(), shell(sh, "echo out; echo err 1>&2; exit 3"))

	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
	assert.False(t, out.Success())
	assert.Equal(t, "out\n", string(out.Stdout))
	assert.Equal(t, "err\n", string(out.Stderr))
}

func TestExecRunner_RunPassesEnv(t *testing.T) {
	sh := requireShell(t)
	r := NewExecRunner(nil, nil)
	c := shell(sh, `echo "$QUICPERF_TEST_VALUE" 1>&2`)
	c.Env = []string{"QUICPERF_TEST_VALUE=hello"}

	out, err := r.Run(context.Background(), c)

	require.NoError(t, err)
	assert.True(t, out.Success())
	assert.Equal(t, "hello\n", string(out.Stderr))
}

func TestExecRunner_RunMissingBinary(t *testing.T) {
	r := NewExecRunner(nil, nil)

	_, err := r.Run(context.Background(), Command{Path: "/nonexistent/quicperf-client"})

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Contains(t, spawnErr.Command, "/nonexistent/quicperf-client")
}

func TestExecRunner_RunTimeout(t *testing.T) {
	sh := requireShell(t)
	r := NewExecRunner(nil, nil)
	r.StopTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, shell(sh, "sleep 30"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecRunner_StartStreamsStderr(t *testing.T) {
	sh := requireShell(t)
	r := NewExecRunner(nil, nil)
	rec := &core.LineRecorder{}

	h, err := r.Start(context.Background(), shell(sh, "echo one 1>&2; echo two 1>&2; exec sleep 30"), rec)
	require.NoError(t, err)
	assert.Greater(t, h.Pid(), 0)

	require.Eventually(t, func() bool { return len(rec.Lines()) == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Stop(context.Background()))
	select {
	case <-h.Done():
	default:
		t.Fatal("Done() must be closed after Stop")
	}
	assert.Equal(t, []string{"one", "two"}, rec.Lines())

	// second stop is a no-op
	assert.NoError(t, h.Stop(context.Background()))
}

func TestExecRunner_StopKillsAfterTimeout(t *testing.T) {
	sh := requireShell(t)
	r := NewExecRunner(nil, nil)
	r.StopTimeout = 200 * time.Millisecond
	rec := &core.LineRecorder{}

	h, err := r.Start(context.Background(), shell(sh, "trap '' TERM; echo ready 1>&2; while :; do sleep 1; done"), rec)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(rec.Lines()) == 1 }, 5*time.Second, 10*time.Millisecond)

	start := time.Now()
	require.NoError(t, h.Stop(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, r.StopTimeout, "stop must wait out the grace period")
	assert.Less(t, elapsed, 5*time.Second)
	select {
	case <-h.Done():
	default:
		t.Fatal("Done() must be closed after Stop")
	}
	assert.Equal(t, []string{"ready"}, rec.Lines())
}

func TestExecRunner_StartFlushesPartialLine(t *testing.T) {
	sh := requireShell(t)
	r := NewExecRunner(nil, nil)
	rec := &core.LineRecorder{}

	h, err := r.Start(context.Background(), shell(sh, `printf 'a\nb' 1>&2`), rec)
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	assert.NoError(t, h.Stop(context.Background()))
	assert.Equal(t, []string{"a", "b"}, rec.Lines())
}

func TestExecRunner_StartMissingBinary(t *testing.T) {
	r := NewExecRunner(nil, nil)

	_, err := r.Start(context.Background(), Command{Path: "/nonexistent/quicperf-server"}, &core.LineRecorder{})

	var spawnErr *SpawnError
	assert.ErrorAs(t, err, &spawnErr)
}

func TestDebugLogger(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebugLogger(&buf)

	d.LogCommand("client", Command{Path: "/bin/client", Args: []string{"-v"}})
	d.LogOutput("client", Output{ExitCode: 0, Stderr: []byte(strings.Repeat("x", maxOutputLogSize+10)), Duration: 18 * time.Millisecond})
	d.LogError("client", errors.New("boom"), time.Second)

	out := buf.String()
	assert.Contains(t, out, "[client] >>> /bin/client -v")
	assert.Contains(t, out, "exit=0 (18ms)")
	assert.Contains(t, out, "truncated")
	assert.Contains(t, out, "boom")
}

func TestDebugLogger_Nil(t *testing.T) {
	var d *DebugLogger
	d.LogCommand("client", Command{})
	d.LogOutput("client", Output{})
	d.LogError("client", errors.New("x"), 0)
}
