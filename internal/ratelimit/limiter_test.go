package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketBurstAndRefill(t *testing.T) {
	l := New(Config{Strategy: StrategyTokenBucket, RequestsPerSec: 5, Burst: 5})

	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatalf("expected token %d within burst", i)
		}
	}
	if l.Allow() {
		t.Fatalf("expected empty bucket after burst")
	}

	time.Sleep(250 * time.Millisecond)
	if !l.Allow() {
		t.Fatalf("expected token after partial refill")
	}
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	l := New(Config{Strategy: StrategyTokenBucket, RequestsPerSec: 1, Burst: 1})

	if !l.Allow() {
		t.Fatalf("expected initial token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatalf("expected context deadline while waiting for a token")
	}
}

func TestTokenBucketReset(t *testing.T) {
	l := New(Config{Strategy: StrategyTokenBucket, RequestsPerSec: 1, Burst: 1})
	if !l.Allow() {
		t.Fatalf("expected initial token")
	}
	l.Reset()
	if !l.Allow() {
		t.Fatalf("expected token after reset")
	}
}

func TestFixedDelaySpacing(t *testing.T) {
	l := New(Config{Strategy: StrategyFixedDelay, FixedDelay: 50 * time.Millisecond})

	if !l.Allow() {
		t.Fatalf("expected first request to pass")
	}
	if l.Allow() {
		t.Fatalf("expected second request inside the delay to be held")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow() {
		t.Fatalf("expected request after the delay elapsed")
	}
}

func TestBackoffBounds(t *testing.T) {
	cfg := Config{
		InitialBackoff:    time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2,
		MaxRetries:        5,
	}

	if d := cfg.Backoff(0); d != 0 {
		t.Fatalf("attempt 0 must not back off, got %v", d)
	}
	for attempt := 1; attempt <= 5; attempt++ {
		d := cfg.Backoff(attempt)
		if d <= 0 {
			t.Fatalf("attempt %d: backoff must be positive", attempt)
		}
		if d > cfg.MaxBackoff {
			t.Fatalf("attempt %d: backoff %v exceeds cap", attempt, d)
		}
	}
	if d := cfg.Backoff(10); d != cfg.MaxBackoff {
		t.Fatalf("past max retries backoff must cap at max, got %v", d)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Strategy != StrategyTokenBucket {
		t.Fatalf("unexpected default strategy: %q", cfg.Strategy)
	}
	if cfg.RequestsPerSec != 5 || cfg.Burst != 5 {
		t.Fatalf("defaults must follow the PUG REST policy: %+v", cfg)
	}
}
