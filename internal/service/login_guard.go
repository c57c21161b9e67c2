package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// LoginGuardPolicy is an exponential backoff applied after repeated failed
// logins. FreeAttempts failures are tolerated before the first cooldown.
type LoginGuardPolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

// LoginGuard tracks failed logins per email and per client IP. Check reports
// the longest active cooldown across both.
type LoginGuard interface {
	Check(ctx context.Context, email, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, email, ip string) (time.Duration, error)
	Reset(ctx context.Context, email, ip string) error
}

type NoopLoginGuard struct{}

func NewNoopLoginGuard() *NoopLoginGuard { return &NoopLoginGuard{} }

func (g *NoopLoginGuard) Check(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}

func (g *NoopLoginGuard) RegisterFailure(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}

func (g *NoopLoginGuard) Reset(context.Context, string, string) error { return nil }

type loginFailures struct {
	count         int
	lastFailureAt time.Time
	cooldownUntil time.Time
}

type InMemoryLoginGuard struct {
	mu     sync.Mutex
	policy LoginGuardPolicy
	data   map[string]loginFailures
	now    func() time.Time
}

func NewInMemoryLoginGuard(policy LoginGuardPolicy) *InMemoryLoginGuard {
	return &InMemoryLoginGuard{
		policy: normalizeLoginGuardPolicy(policy),
		data:   make(map[string]loginFailures),
		now:    time.Now,
	}
}

func (g *InMemoryLoginGuard) Check(_ context.Context, email, ip string) (time.Duration, error) {
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(
		g.activeCooldownLocked(now, loginGuardKey("id", normalizeLoginEmail(email))),
		g.activeCooldownLocked(now, loginGuardKey("ip", normalizeLoginIP(ip))),
	), nil
}

func (g *InMemoryLoginGuard) RegisterFailure(_ context.Context, email, ip string) (time.Duration, error) {
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(
		g.bumpLocked(now, loginGuardKey("id", normalizeLoginEmail(email))),
		g.bumpLocked(now, loginGuardKey("ip", normalizeLoginIP(ip))),
	), nil
}

// Reset clears the email dimension only. A successful login from a shared
// address should not wipe failures other accounts accumulated there.
func (g *InMemoryLoginGuard) Reset(_ context.Context, email, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.data, loginGuardKey("id", normalizeLoginEmail(email)))
	return nil
}

func (g *InMemoryLoginGuard) bumpLocked(now time.Time, key string) time.Duration {
	entry := g.data[key]
	if entry.lastFailureAt.IsZero() || now.Sub(entry.lastFailureAt) > g.policy.ResetWindow {
		entry.count = 0
	}
	entry.count++
	entry.lastFailureAt = now
	delay := g.policy.delay(entry.count)
	entry.cooldownUntil = now.Add(delay)
	g.data[key] = entry
	return delay
}

func (g *InMemoryLoginGuard) activeCooldownLocked(now time.Time, key string) time.Duration {
	entry, ok := g.data[key]
	if !ok {
		return 0
	}
	if now.Sub(entry.lastFailureAt) > g.policy.ResetWindow {
		delete(g.data, key)
		return 0
	}
	if !now.Before(entry.cooldownUntil) {
		return 0
	}
	return entry.cooldownUntil.Sub(now)
}

func (p LoginGuardPolicy) delay(failures int) time.Duration {
	if failures <= p.FreeAttempts {
		return 0
	}
	power := math.Pow(p.Multiplier, float64(failures-p.FreeAttempts-1))
	d := time.Duration(float64(p.BaseDelay) * power)
	if d > p.MaxDelay || d < 0 {
		return p.MaxDelay
	}
	return d
}

func loginGuardKey(dim, value string) string {
	return fmt.Sprintf("login:%s:%s", dim, value)
}

func normalizeLoginEmail(email string) string {
	v := strings.TrimSpace(strings.ToLower(email))
	if v == "" {
		return "anonymous"
	}
	return v
}

func normalizeLoginIP(ip string) string {
	v := strings.TrimSpace(strings.ToLower(ip))
	if v == "" {
		return "unknown"
	}
	return v
}

func normalizeLoginGuardPolicy(policy LoginGuardPolicy) LoginGuardPolicy {
	if policy.FreeAttempts < 0 {
		policy.FreeAttempts = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = 5 * time.Minute
	}
	if policy.ResetWindow <= 0 {
		policy.ResetWindow = 30 * time.Minute
	}
	return policy
}
