// Package ratelimit paces outbound marketplace requests. The limiter is a
// politeness floor, not traffic shaping: the configured interval is the
// minimum gap between requests, and jitter can only stretch it.
package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter releases requests on a fixed cadence with optional added jitter.
// Safe for concurrent use; concurrent waiters are released one per tick.
type Limiter struct {
	interval time.Duration
	jitter   float64
	ticker   *time.Ticker
}

// New builds a limiter releasing one request every 1/rps seconds plus up
// to jitter*interval of extra delay per request. Jitter is clamped to
// [0, 1]. A non-positive rps disables pacing entirely.
func New(rps, jitter float64) *Limiter {
	l := &Limiter{jitter: min(max(jitter, 0), 1)}
	if rps <= 0 {
		return l
	}
	l.interval = time.Duration(float64(time.Second) / rps)
	l.ticker = time.NewTicker(l.interval)
	return l
}

// Wait blocks until the next request may go out, or until ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ticker == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ticker.C:
	}

	extra := time.Duration(float64(l.interval) * l.jitter * rand.Float64())
	if extra <= 0 {
		return nil
	}

	timer := time.NewTimer(extra)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stop releases the ticker. The limiter must not be used afterwards.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
