// Package ratelimit implements client-side request throttling: a minimum
// interval between requests plus a rolling per-minute cap. This is advisory
// throttling local to one client, not a distributed limiter.
package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// DefaultMinInterval is the minimum spacing between request starts.
	DefaultMinInterval = 500 * time.Millisecond
	// DefaultMaxPerMinute is the rolling per-minute request cap.
	DefaultMaxPerMinute = 60
	// windowCapFallback bounds the timestamp window when the per-minute
	// cap is unlimited (0).
	windowCapFallback = 100

	window = time.Minute
)

// Limiter enforces request spacing for a single client. Safe for concurrent
// use; when two requests become eligible simultaneously either may proceed
// first.
type Limiter struct {
	mu           sync.Mutex
	minInterval  time.Duration
	maxPerMinute int
	last         time.Time
	stamps       []time.Time

	// Injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter. minInterval <= 0 and maxPerMinute < 0 select the
// defaults; maxPerMinute == 0 disables the per-minute cap.
func New(minInterval time.Duration, maxPerMinute int) *Limiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if maxPerMinute < 0 {
		maxPerMinute = DefaultMaxPerMinute
	}
	return &Limiter{
		minInterval:  minInterval,
		maxPerMinute: maxPerMinute,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait suspends the caller until the next request may start, then records
// the request timestamp. Returns early only on context cancellation.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Minimum spacing since the previous request.
	if !l.last.IsZero() {
		if since := now.Sub(l.last); since < l.minInterval {
			wait := l.minInterval - since
			log.Printf("ratelimit: waiting %s (min interval)", wait.Round(time.Millisecond))
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
			now = l.now()
		}
	}

	// Rolling per-minute cap.
	if l.maxPerMinute > 0 {
		l.prune(now)
		if len(l.stamps) >= l.maxPerMinute {
			wait := l.stamps[0].Add(window).Sub(now)
			if wait > 0 {
				log.Printf("ratelimit: waiting %s (per-minute limit)", wait.Round(time.Millisecond))
				if err := l.sleep(ctx, wait); err != nil {
					return err
				}
				now = l.now()
			}
			l.prune(now)
		}
	}

	l.last = now
	l.record(now)
	return nil
}

// prune drops timestamps that fell out of the rolling window.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(l.stamps) && l.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

// record appends a timestamp, keeping the window bounded.
func (l *Limiter) record(now time.Time) {
	limit := l.maxPerMinute
	if limit <= 0 {
		limit = windowCapFallback
	}
	l.stamps = append(l.stamps, now)
	if len(l.stamps) > limit {
		l.stamps = l.stamps[len(l.stamps)-limit:]
	}
}
