package ratelimit

import (
	"context"
	"sync"
	"time"
)

// tokenBucket refills at the configured rate up to its burst capacity.
type tokenBucket struct {
	mu     sync.Mutex
	cfg    Config
	tokens float64
	last   time.Time
}

func newTokenBucket(cfg Config) *tokenBucket {
	return &tokenBucket{
		cfg:    cfg,
		tokens: float64(cfg.Burst),
		last:   time.Now(),
	}
}

// take consumes a token when one is available, or returns the time until
// one will be.
func (b *tokenBucket) take() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(time.Now())
	if b.tokens >= 1 {
		b.tokens--
		return 0
	}

	missing := 1 - b.tokens
	return time.Duration(missing / b.cfg.RequestsPerSec * float64(time.Second))
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	for {
		wait := b.take()
		if wait == 0 {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (b *tokenBucket) Allow() bool {
	return b.take() == 0
}

func (b *tokenBucket) RetryAfter(attempt int) time.Duration {
	return b.cfg.Backoff(attempt)
}

func (b *tokenBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = float64(b.cfg.Burst)
	b.last = time.Now()
}

// refill credits tokens for the time elapsed since the last update. Caller
// holds the lock.
func (b *tokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}

	b.tokens += elapsed.Seconds() * b.cfg.RequestsPerSec
	if b.tokens > float64(b.cfg.Burst) {
		b.tokens = float64(b.cfg.Burst)
	}
	b.last = now
}
