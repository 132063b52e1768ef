package ratelimit

import (
	"context"
	"sync"
	"time"
)

// fixedDelay spaces requests by a constant interval, the conservative
// choice for long unattended downloads.
type fixedDelay struct {
	mu   sync.Mutex
	cfg  Config
	next time.Time
}

func newFixedDelay(cfg Config) *fixedDelay {
	return &fixedDelay{cfg: cfg}
}

// reserve claims the next request slot and returns how long to wait for it.
func (f *fixedDelay) reserve() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if f.next.After(now) {
		wait := f.next.Sub(now)
		f.next = f.next.Add(f.cfg.FixedDelay)
		return wait
	}

	f.next = now.Add(f.cfg.FixedDelay)
	return 0
}

func (f *fixedDelay) Wait(ctx context.Context) error {
	return sleep(ctx, f.reserve())
}

func (f *fixedDelay) Allow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if f.next.After(now) {
		return false
	}
	f.next = now.Add(f.cfg.FixedDelay)
	return true
}

func (f *fixedDelay) RetryAfter(attempt int) time.Duration {
	return f.cfg.Backoff(attempt)
}

func (f *fixedDelay) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = time.Time{}
}
