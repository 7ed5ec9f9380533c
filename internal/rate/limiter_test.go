package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, cfg), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestLoginThrottleLocksAfterMaxAttempts(t *testing.T) {
	l, _, done := newLimiterTest(t, Config{MaxLoginAttempts: 3, LoginCooldown: time.Minute})
	defer done()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "John@Mail.com", ""); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i, err)
		}
		_ = l.IncrementLogin(ctx, "john@mail.com", "")
	}
	if err := l.CheckLogin(ctx, " JOHN@mail.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	n, err := l.GetLoginAttempts(ctx, "john@mail.com")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 attempts, got %d (%v)", n, err)
	}
}

func TestLoginThrottleWindowExpires(t *testing.T) {
	l, mr, done := newLimiterTest(t, Config{MaxLoginAttempts: 1, LoginCooldown: time.Minute})
	defer done()
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@b.c", "")
	if err := l.CheckLogin(ctx, "a@b.c", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}
	mr.FastForward(61 * time.Second)
	if err := l.CheckLogin(ctx, "a@b.c", ""); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestLoginThrottleResetClearsEmailOnly(t *testing.T) {
	l, _, done := newLimiterTest(t, Config{MaxLoginAttempts: 1, LoginCooldown: time.Minute, EnableIPThrottle: true})
	defer done()
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@b.c", "10.0.0.1")
	if err := l.ResetLogin(ctx, "a@b.c"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.GetLoginAttempts(ctx, "a@b.c"); n != 0 {
		t.Fatalf("expected email counter cleared, got %d", n)
	}
	if err := l.CheckLogin(ctx, "other@b.c", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP to stay limited, got %v", err)
	}
	if err := l.CheckLogin(ctx, "other@b.c", "10.0.0.2"); err != nil {
		t.Fatalf("other IP must not be limited: %v", err)
	}
}

func TestLoginThrottleRedisDown(t *testing.T) {
	l, mr, done := newLimiterTest(t, Config{MaxLoginAttempts: 1, LoginCooldown: time.Minute})
	defer done()
	mr.Close()

	if err := l.CheckLogin(context.Background(), "a@b.c", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
