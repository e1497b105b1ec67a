package process

import (
	"bytes"
	"sync"
)

// lineWriter splits a byte stream into lines and forwards each complete line
// to a sink. Trailing carriage returns are stripped.
type lineWriter struct {
	sink LineSink
	buf  []byte
	mu   sync.Mutex
}

func newLineWriter(sink LineSink) *lineWriter {
	return &lineWriter{sink: sink}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush forwards a final unterminated line, if any.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	w.sink.Append(string(line))
}
