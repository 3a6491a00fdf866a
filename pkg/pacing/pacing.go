// Package pacing inserts randomized, bounded delays between automated
// browser actions so that traffic looks human and lazily loaded content has
// time to settle.
package pacing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Interval is an inclusive range of durations to wait.
type Interval struct {
	Min time.Duration
	Max time.Duration
}

// Between returns the interval [lo, hi]. Bounds given in the wrong order
// are swapped.
func Between(lo, hi time.Duration) Interval {
	if hi < lo {
		lo, hi = hi, lo
	}
	return Interval{Min: lo, Max: hi}
}

// Fixed returns an interval that always yields d.
func Fixed(d time.Duration) Interval {
	return Interval{Min: d, Max: d}
}

// Seconds is shorthand for Between with fractional second bounds.
func Seconds(lo, hi float64) Interval {
	return Between(time.Duration(lo*float64(time.Second)), time.Duration(hi*float64(time.Second)))
}

// Pick returns a duration in the interval using r.
func (i Interval) Pick(r *rand.Rand) time.Duration {
	if i.Max <= i.Min {
		return i.Min
	}
	return i.Min + time.Duration(r.Int64N(int64(i.Max-i.Min)+1))
}

// Pacer waits for a duration drawn from an interval.
type Pacer interface {
	// Wait blocks for a duration within i or until ctx is done, in which
	// case it returns the context error.
	Wait(ctx context.Context, i Interval) error
}

// RandomPacer draws uniformly distributed delays. All callers share one
// optional rate limiter, which bounds the global action rate when several
// workers pace independently. It is safe for concurrent use.
type RandomPacer struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	scale   float64
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a RandomPacer.
type Option func(*RandomPacer)

// WithSeed makes the delay sequence deterministic.
func WithSeed(seed uint64) Option {
	return func(p *RandomPacer) {
		p.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithScale multiplies every delay by f. Values <= 0 are ignored.
func WithScale(f float64) Option {
	return func(p *RandomPacer) {
		if f > 0 {
			p.scale = f
		}
	}
}

// WithRateLimit caps the number of paced actions per second across all
// callers.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(p *RandomPacer) {
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(limit, burst)
	}
}

// New creates a RandomPacer.
func New(opts ...Option) *RandomPacer {
	p := &RandomPacer{
		rnd:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		scale: 1,
		sleep: Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the next delay for i without waiting.
func (p *RandomPacer) Next(i Interval) time.Duration {
	p.mu.Lock()
	d := i.Pick(p.rnd)
	p.mu.Unlock()
	return time.Duration(float64(d) * p.scale)
}

// Wait implements Pacer.
func (p *RandomPacer) Wait(ctx context.Context, i Interval) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return p.sleep(ctx, p.Next(i))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type none struct{}

func (none) Wait(ctx context.Context, _ Interval) error {
	return ctx.Err()
}

// None returns a Pacer that never waits. It still reports cancellation.
func None() Pacer {
	return none{}
}
