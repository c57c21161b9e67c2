package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubLimiter struct {
	allow bool
	retry time.Duration
	err   error
}

func (s stubLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return s.allow, s.retry, s.err
}

type recordingLimiter struct {
	lastKey string
	allow   bool
}

func (r *recordingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	r.lastKey = key
	return r.allow, 0, nil
}

func serveLimited(t *testing.T, rl *RateLimiter, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestDistributedRateLimiterFailOpenOnBackendError(t *testing.T) {
	rl := NewDistributedRateLimiter(stubLimiter{err: errors.New("redis down")}, 10, time.Minute, FailOpen, "auth")
	if rr := serveLimited(t, rl, "10.0.0.1:1111"); rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open to allow request, got %d", rr.Code)
	}
}

func TestDistributedRateLimiterFailClosedOnBackendError(t *testing.T) {
	rl := NewDistributedRateLimiter(stubLimiter{err: errors.New("redis down")}, 10, time.Minute, FailClosed, "auth")
	rr := serveLimited(t, rl, "10.0.0.1:1111")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected fail-closed to reject request, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After=60, got %q", got)
	}
}

func TestDistributedRateLimiterDenySetsRetryAfter(t *testing.T) {
	rl := NewDistributedRateLimiter(stubLimiter{allow: false, retry: 1500 * time.Millisecond}, 1, time.Minute, FailClosed, "auth")
	rr := serveLimited(t, rl, "10.0.0.1:1111")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected rounded Retry-After=2, got %q", got)
	}
}

func TestDistributedRateLimiterKeysByScopeAndClientIP(t *testing.T) {
	rec := &recordingLimiter{allow: true}
	rl := NewDistributedRateLimiter(rec, 10, time.Minute, FailClosed, "")
	if rr := serveLimited(t, rl, "192.0.2.7:5555"); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rec.lastKey != "api:192.0.2.7" {
		t.Fatalf("unexpected limiter key %q", rec.lastKey)
	}
}

func TestLocalFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalFixedWindowLimiter().(*localFixedWindowLimiter)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 2 {
		allowed, _, err := l.Allow(ctx, "auth:ip", 2, time.Minute)
		if err != nil || !allowed {
			t.Fatalf("hit %d: expected allow, got allowed=%v err=%v", i, allowed, err)
		}
	}
	now = now.Add(20 * time.Second)
	allowed, retry, err := l.Allow(ctx, "auth:ip", 2, time.Minute)
	if err != nil || allowed {
		t.Fatalf("expected third hit to be denied, got allowed=%v err=%v", allowed, err)
	}
	if retry != 40*time.Second {
		t.Fatalf("expected retry after 40s, got %s", retry)
	}

	now = now.Add(40 * time.Second)
	if allowed, _, _ := l.Allow(ctx, "auth:ip", 2, time.Minute); !allowed {
		t.Fatal("expected allow once the window has elapsed")
	}
	if allowed, _, _ := l.Allow(ctx, "auth:other", 2, time.Minute); !allowed {
		t.Fatal("expected independent keys to have independent windows")
	}
}
