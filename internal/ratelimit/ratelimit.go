// Package ratelimit paces outbound requests to the PubChem PUG REST API.
// The service allows at most five requests per second per host; going over
// returns 503 responses and eventually a temporary block.
package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Limiter paces requests to an external API.
type Limiter interface {
	// Wait blocks until the next request may be sent or ctx is done.
	Wait(ctx context.Context) error
	// Allow reports whether a request may be sent immediately, consuming
	// the slot when it may.
	Allow() bool
	// RetryAfter returns how long to back off before retry number attempt.
	RetryAfter(attempt int) time.Duration
	// Reset returns the limiter to its initial state.
	Reset()
}

// Strategy selects the pacing algorithm.
type Strategy string

const (
	StrategyTokenBucket Strategy = "token_bucket"
	StrategyFixedDelay  Strategy = "fixed_delay"
)

// Config holds limiter settings, loadable from the YAML config file.
type Config struct {
	Strategy          Strategy      `yaml:"strategy" json:"strategy"`
	RequestsPerSec    float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
	FixedDelay        time.Duration `yaml:"fixed_delay" json:"fixed_delay"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff" json:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
}

// DefaultConfig matches the documented PUG REST request policy.
func DefaultConfig() Config {
	return Config{
		Strategy:          StrategyTokenBucket,
		RequestsPerSec:    5.0,
		Burst:             5,
		FixedDelay:        200 * time.Millisecond,
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Strategy == "" {
		c.Strategy = def.Strategy
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = def.RequestsPerSec
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	if c.FixedDelay <= 0 {
		c.FixedDelay = def.FixedDelay
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = def.BackoffMultiplier
	}
	return c
}

// New builds a limiter for the configured strategy.
func New(cfg Config) Limiter {
	cfg = cfg.withDefaults()
	if cfg.Strategy == StrategyFixedDelay {
		return newFixedDelay(cfg)
	}
	return newTokenBucket(cfg)
}

// Backoff returns the exponential backoff before retry number attempt,
// jittered by +/-25% so concurrent fetchers do not retry in lockstep.
func (c Config) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > c.MaxRetries {
		return c.MaxBackoff
	}

	d := float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt-1))
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}

	d += d * 0.25 * (2*rand.Float64() - 1)
	if d < 0 {
		d = 0
	}
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	return time.Duration(d)
}

// sleep waits for d, honoring context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
