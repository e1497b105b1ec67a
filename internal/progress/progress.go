// Package progress prints live trial progress to the operator's terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"

	"quicperf/internal/pacing"
)

// Progress may be started and stopped repeatedly; each Start owns its own
// ticker goroutine until the matching Stop.
type Progress struct {
	startTime time.Time
	interval  time.Duration
	stopCh    chan struct{}
	running   sync.WaitGroup
	quiet     bool
	output    io.Writer
	mu        sync.Mutex

	current   pacing.Slot
	completed atomic.Int64
	failed    atomic.Int64

	ok   *color.Color
	fail *color.Color
}

func NewProgress(quiet bool) *Progress {
	return &Progress{
		quiet:    quiet,
		interval: time.Second,
		output:   os.Stderr,
		ok:       color.New(color.FgGreen),
		fail:     color.New(color.FgRed),
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// SetColor forces colored output on or off.
func (p *Progress) SetColor(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range []*color.Color{p.ok, p.fail} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// Start begins the once-per-second status line. It is a no-op while a
// previous Start is still running.
func (p *Progress) Start() {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh != nil {
		return
	}
	p.startTime = time.Now()
	p.stopCh = make(chan struct{})
	ticker := time.NewTicker(p.interval)
	p.running.Add(1)
	go p.run(ticker, p.stopCh)
}

func (p *Progress) run(ticker *time.Ticker, stopCh <-chan struct{}) {
	defer p.running.Done()
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.printStatus()
		}
	}
}

func (p *Progress) printStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current.Total == 0 {
		return
	}
	elapsed := time.Since(p.startTime).Round(time.Second)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	fmt.Fprintf(p.output, "\r\033[K[%02d:%02d] %s running | Completed: %d | Failed: %d",
		mins, secs, p.current.Label(), p.completed.Load(), p.failed.Load())
}

// TrialStarted marks slot as the trial in flight.
func (p *Progress) TrialStarted(slot pacing.Slot) {
	p.mu.Lock()
	p.current = slot
	p.mu.Unlock()
}

// TrialFinished prints the outcome of one trial. detail is shown on success.
func (p *Progress) TrialFinished(slot pacing.Slot, elapsed time.Duration, detail string, err error) {
	if slot.Measured() {
		p.completed.Add(1)
		if err != nil {
			p.failed.Add(1)
		}
	}
	if p.quiet {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = pacing.Slot{}
	took := elapsed.Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(p.output, "\r\033[K%s %s (%v): %v\n", slot.Label(), p.fail.Sprint("failed"), took, err)
		return
	}
	fmt.Fprintf(p.output, "\r\033[K%s %s (%v) %s\n", slot.Label(), p.ok.Sprint("ok"), took, detail)
}

// Completed returns how many measured trials have finished.
func (p *Progress) Completed() int { return int(p.completed.Load()) }

// Failed returns how many measured trials have failed.
func (p *Progress) Failed() int { return int(p.failed.Load()) }

// Stop ends the status line started by Start and waits for its goroutine
// to exit. Stop without a running Start does nothing.
func (p *Progress) Stop() {
	if p.quiet {
		return
	}
	p.mu.Lock()
	stopCh := p.stopCh
	p.stopCh = nil
	p.mu.Unlock()
	if stopCh == nil {
		return
	}

	close(stopCh)
	p.running.Wait()

	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K")
	p.mu.Unlock()
}

func (p *Progress) Print(message string) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K%s\n", message)
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K"+format+"\n", args...)
	p.mu.Unlock()
}
