package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, rate, burst float64) (*RateLimiter, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, slog.New(slog.NewTextHandler(io.Discard, nil)), rate, burst), rdb
}

func TestRateLimiter_BurstThenSpacing(t *testing.T) {
	limiter, rdb := newTestLimiter(t, 10, 2)
	ctx := context.Background()

	before := time.Now().UnixMilli()
	for i := 0; i < 2; i++ {
		start := time.Now()
		if err := limiter.Acquire(ctx, "www.amazon.in"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Fatalf("burst acquire %d should not wait, elapsed=%v", i, elapsed)
		}
	}

	stored, err := rdb.Get(ctx, keyPrefix+"www.amazon.in").Result()
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	next, err := strconv.ParseFloat(stored, 64)
	if err != nil {
		t.Fatalf("parse stored instant %q: %v", stored, err)
	}
	if next < float64(before+200) {
		t.Fatalf("expected next slot two intervals ahead, got %.0f (before=%d)", next, before)
	}

	start := time.Now()
	if err := limiter.Acquire(ctx, "www.amazon.in"); err != nil {
		t.Fatalf("third acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("third acquire should wait after the burst, elapsed=%v", elapsed)
	}
}

func TestRateLimiter_BlocksUntilRefill(t *testing.T) {
	limiter, _ := newTestLimiter(t, 10, 1)

	if err := limiter.Acquire(context.Background(), "www.flipkart.com"); err != nil {
		t.Fatalf("warm acquire: %v", err)
	}
	start := time.Now()
	if err := limiter.Acquire(context.Background(), "www.flipkart.com"); err != nil {
		t.Fatalf("blocked acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("expected to wait for refill, elapsed=%v", elapsed)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, 1)

	if err := limiter.Acquire(context.Background(), "www.myntra.com"); err != nil {
		t.Fatalf("acquire myntra: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Acquire(ctx, "www.ajio.com"); err != nil {
		t.Fatalf("other host should have its own bucket: %v", err)
	}
}

func TestRateLimiter_ContextTimeout(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, 1)

	if err := limiter.Acquire(context.Background(), "www.snapdeal.com"); err != nil {
		t.Fatalf("warm acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Acquire(ctx, "www.snapdeal.com"); !errors.Is(err, ErrRateLimitTimeout) {
		t.Fatalf("expected ErrRateLimitTimeout, got %v", err)
	}
}

func TestRateLimiter_DisabledWhenNil(t *testing.T) {
	var limiter *RateLimiter
	if err := limiter.Acquire(context.Background(), "any"); err != nil {
		t.Fatalf("nil limiter should allow, got %v", err)
	}

	if disabled := New(nil, nil, 0, 3); disabled != nil {
		t.Fatalf("rate 0 should disable the limiter, got %+v", disabled)
	}
}
