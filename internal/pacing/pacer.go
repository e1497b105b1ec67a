// Package pacing spaces trials apart and orders warmup and measured trials.
package pacing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between trial starts.
type Pacer struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// NewPacer creates a pacer. An interval of zero or less disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{limiter: rate.NewLimiter(limitFor(interval), 1)}
}

func limitFor(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

// Wait blocks until the next trial may start or ctx is done.
// The first call never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.RLock()
	limiter := p.limiter
	p.mu.RUnlock()

	if limiter.Limit() == rate.Inf {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

// SetInterval changes the spacing for subsequent waits.
func (p *Pacer) SetInterval(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.SetLimit(limitFor(interval))
}

// Interval returns the current spacing; zero means unpaced.
func (p *Pacer) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	limit := p.limiter.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}
