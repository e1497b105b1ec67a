package core

import "sync"

// LineRecorder is a thread-safe line sink for tests.
type LineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *LineRecorder) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// Lines returns a copy of the recorded lines.
func (r *LineRecorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
