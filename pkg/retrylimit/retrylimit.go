// Package retrylimit wraps outbound HTTP calls in a rate limiter that slows
// down when the remote pushes back, plus bounded exponential backoff.
//
//	p := retrylimit.Policy{
//		Limiter:  retrylimit.NewAdaptiveLimiter(20, 5, 50),
//		Attempts: 3,
//	}
//	err := p.Do(ctx, func() error { return call(ctx) })
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// calm is how long the limiter must go without pushback before it speeds
// up again.
const calm = 10 * time.Second

// AdaptiveLimiter is a token bucket whose rate moves between lo and hi: one
// step up per success after a calm period, halved on every pushback.
type AdaptiveLimiter struct {
	mu       sync.Mutex
	lim      *rate.Limiter
	lo, hi   rate.Limit
	lastPush time.Time
}

func NewAdaptiveLimiter(initial, lo, hi rate.Limit) *AdaptiveLimiter {
	lo = max(lo, 1)
	initial = min(max(initial, lo), hi)
	return &AdaptiveLimiter{
		lim: rate.NewLimiter(initial, int(initial)),
		lo:  lo,
		hi:  hi,
	}
}

func (a *AdaptiveLimiter) Wait(ctx context.Context) error { return a.lim.Wait(ctx) }

func (a *AdaptiveLimiter) succeeded() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastPush) > calm {
		a.set(a.lim.Limit() + 1)
	}
}

func (a *AdaptiveLimiter) pushedBack() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastPush = time.Now()
	a.set(a.lim.Limit() / 2)
}

// Rate is the current allowance in requests per second.
func (a *AdaptiveLimiter) Rate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(a.lim.Limit())
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	r = min(max(r, a.lo), a.hi)
	if r == a.lim.Limit() {
		return
	}
	a.lim.SetLimit(r)
	a.lim.SetBurst(int(r))
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

type fatalError struct{ err error }

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Unwrap() error { return f.err }

// Fatal marks err as not worth retrying. Do returns the original error.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Policy describes how Do retries. The zero value tries once without a
// limiter.
type Policy struct {
	Limiter    *AdaptiveLimiter
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Do runs fn until it succeeds, returns a Fatal error, ctx ends or the
// attempts run out. 429 and 5xx responses slow the limiter down.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Backoff

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		last = fn()
		if last == nil {
			if p.Limiter != nil {
				p.Limiter.succeeded()
			}
			return nil
		}
		if fe := (*fatalError)(nil); errors.As(last, &fe) {
			return fe.err
		}

		code := statusOf(last)
		if p.Limiter != nil && (code == http.StatusTooManyRequests || code >= 500) {
			p.Limiter.pushedBack()
		}
		if attempt == attempts {
			break
		}

		wait := jitter(delay)
		log.Debug().Err(last).Int("attempt", attempt).Int("status", code).Dur("sleep", wait).Msg("retrying request")
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
		if p.MaxBackoff > 0 {
			delay = min(delay, p.MaxBackoff)
		}
	}
	if attempts == 1 {
		return last
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, last)
}

// jitter adds up to a quarter of d.
func jitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + rand.N(d/4)
}

func statusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}
