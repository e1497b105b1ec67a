// Package logbuf holds the ordered log of a long-running process.
package logbuf

import (
	"sync"
	"time"
)

// Buffer collects lines from a single background writer and hands an ordered
// snapshot to the reader once the writer is done. Lines are sent over a
// channel to a collecting goroutine, so the writer never touches the slice.
type Buffer struct {
	lines     []string
	ch        chan string
	done      chan struct{}
	mu        sync.Mutex
	sendMu    sync.RWMutex
	closed    bool
	dropped   int
	startTime time.Time
	endTime   time.Time
}

// New creates a Buffer and starts its collection goroutine.
func New() *Buffer {
	b := &Buffer{
		lines:     make([]string, 0, 100),
		ch:        make(chan string, 1000),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	go b.collect()
	return b
}

func (b *Buffer) collect() {
	for line := range b.ch {
		b.mu.Lock()
		b.lines = append(b.lines, line)
		b.mu.Unlock()
	}
	close(b.done)
}

// Append queues a line. It blocks while the channel is full so no line is
// lost. Lines appended after Close are counted and discarded.
func (b *Buffer) Append(line string) {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed {
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		return
	}
	b.ch <- line
}

// Close stops accepting lines and waits until every queued line is stored.
// Safe to call more than once.
func (b *Buffer) Close() {
	b.sendMu.Lock()
	if b.closed {
		b.sendMu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	b.endTime = time.Now()
	close(b.ch)
	b.sendMu.Unlock()
	<-b.done
}

// Lines returns a copy of the collected lines in arrival order.
// Call after Close for a complete snapshot.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]string, len(b.lines))
	copy(result, b.lines)
	return result
}

// Len returns the number of stored lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Dropped returns how many lines arrived after Close.
func (b *Buffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Duration returns how long the buffer was open.
// If still open, returns the time since creation.
func (b *Buffer) Duration() time.Duration {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed {
		return b.endTime.Sub(b.startTime)
	}
	return time.Since(b.startTime)
}
