package process

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

const maxOutputLogSize = 2048

// DebugLogger dumps command lines and captured output for --verbose runs.
// A nil *DebugLogger is valid and logs nothing.
type DebugLogger struct {
	out io.Writer
	mu  sync.Mutex
}

func NewDebugLogger(out io.Writer) *DebugLogger {
	return &DebugLogger{out: out}
}

func (d *DebugLogger) LogCommand(role string, cmd Command) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "\n[%s] >>> %s\n", role, cmd)
}

func (d *DebugLogger) LogOutput(role string, out Output) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("[%s] <<< exit=%d (%s)\n", role, out.ExitCode, out.Duration.Round(time.Millisecond)))
	if len(out.Stderr) > 0 {
		buf.WriteString(fmt.Sprintf("  Stderr: %s\n", truncateOutput(out.Stderr)))
	}
	fmt.Fprint(d.out, buf.String())
}

func (d *DebugLogger) LogError(role string, err error, duration time.Duration) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "[%s] !!! ERROR (%s)\n  %v\n", role, duration.Round(time.Millisecond), err)
}

// truncateOutput keeps the tail of long output; the interesting lines of a
// client log are the last ones.
func truncateOutput(b []byte) string {
	if len(b) <= maxOutputLogSize {
		return string(b)
	}
	return fmt.Sprintf("(truncated, %d bytes total) ...", len(b)) + string(b[len(b)-maxOutputLogSize:])
}
