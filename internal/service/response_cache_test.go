package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingCompute struct {
	calls  int
	body   []byte
	status int
	err    error
}

func (c *countingCompute) fn(context.Context) ([]byte, int, error) {
	c.calls++
	return c.body, c.status, c.err
}

func TestFingerprintIgnoresParameterOrder(t *testing.T) {
	a, _ := url.ParseQuery("page=2&per_page=5&order=desc&sort_by=created")
	b, _ := url.ParseQuery("sort_by=created&order=desc&per_page=5&page=2")
	c, _ := url.ParseQuery("sort_by=created&order=desc&per_page=5&page=3")
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("expected reordered params to share a fingerprint")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatal("expected a changed param to change the fingerprint")
	}
	multiA := url.Values{"name": {"b", "a"}}
	multiB := url.Values{"name": {"a", "b"}}
	if Fingerprint(multiA) != Fingerprint(multiB) {
		t.Fatal("expected repeated values to be order independent")
	}
	if len(Fingerprint(a)) != 64 {
		t.Fatalf("expected sha256 hex, got %q", Fingerprint(a))
	}
}

func TestResponseCacheHitReturnsIdenticalBody(t *testing.T) {
	cache := NewResponseCache(NewInMemoryListCacheStore(), time.Minute, discardLogger())
	compute := &countingCompute{body: []byte(`{"data":[1]}`), status: http.StatusOK}
	ctx := context.Background()
	first, _ := url.ParseQuery("page=1&per_page=10")
	second, _ := url.ParseQuery("per_page=10&page=1")

	r1, err := cache.GetOrCompute(ctx, "project:u-1", first, compute.fn)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if r1.Hit || r1.Status != http.StatusOK {
		t.Fatalf("expected computed miss, got %+v", r1)
	}
	r2, err := cache.GetOrCompute(ctx, "project:u-1", second, compute.fn)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !r2.Hit || r2.Status != http.StatusOK || !bytes.Equal(r1.Body, r2.Body) {
		t.Fatalf("expected byte-identical hit, got %+v", r2)
	}
	if compute.calls != 1 {
		t.Fatalf("expected one compute, got %d", compute.calls)
	}

	if _, err := cache.GetOrCompute(ctx, "project:u-2", first, compute.fn); err != nil {
		t.Fatalf("other namespace: %v", err)
	}
	if compute.calls != 2 {
		t.Fatalf("expected another namespace to miss, calls=%d", compute.calls)
	}
}

func TestResponseCacheSkipsErrorStatuses(t *testing.T) {
	cache := NewResponseCache(NewInMemoryListCacheStore(), time.Minute, discardLogger())
	ctx := context.Background()
	params := url.Values{"page": {"0"}}

	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		compute := &countingCompute{body: []byte(`{"success":false}`), status: status}
		for i := 0; i < 2; i++ {
			res, err := cache.GetOrCompute(ctx, "task:u-1", params, compute.fn)
			if err != nil {
				t.Fatalf("status %d: %v", status, err)
			}
			if res.Hit || res.Status != status {
				t.Fatalf("status %d: expected uncached passthrough, got %+v", status, res)
			}
		}
		if compute.calls != 2 {
			t.Fatalf("status %d: expected compute on every call, got %d", status, compute.calls)
		}
	}

	failing := &countingCompute{err: errors.New("boom")}
	if _, err := cache.GetOrCompute(ctx, "task:u-1", url.Values{}, failing.fn); err == nil {
		t.Fatal("expected compute error to propagate")
	}
	ok := &countingCompute{body: []byte(`[]`), status: http.StatusOK}
	if res, _ := cache.GetOrCompute(ctx, "task:u-1", url.Values{}, ok.fn); res.Hit || ok.calls != 1 {
		t.Fatalf("expected failed compute to leave nothing cached, got %+v", res)
	}
}

func TestResponseCacheServesStaleDataUntilTTL(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewResponseCache(NewRedisListCacheStore(client, "lc"), 60*time.Second, discardLogger())
	ctx := context.Background()
	params := url.Values{"page": {"1"}}

	before := &countingCompute{body: []byte(`{"total":1}`), status: http.StatusOK}
	if _, err := cache.GetOrCompute(ctx, "project:u-1", params, before.fn); err != nil {
		t.Fatalf("prime: %v", err)
	}

	// A write happened; the next read inside the window still sees the old body.
	after := &countingCompute{body: []byte(`{"total":2}`), status: http.StatusOK}
	res, err := cache.GetOrCompute(ctx, "project:u-1", params, after.fn)
	if err != nil {
		t.Fatalf("stale read: %v", err)
	}
	if !res.Hit || string(res.Body) != `{"total":1}` || after.calls != 0 {
		t.Fatalf("expected stale hit within ttl, got %+v calls=%d", res, after.calls)
	}

	m.FastForward(61 * time.Second)
	res, err = cache.GetOrCompute(ctx, "project:u-1", params, after.fn)
	if err != nil {
		t.Fatalf("fresh read: %v", err)
	}
	if res.Hit || string(res.Body) != `{"total":2}` || after.calls != 1 {
		t.Fatalf("expected recompute after ttl, got %+v calls=%d", res, after.calls)
	}
}

func TestResponseCacheDegradesWhenStoreFails(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewResponseCache(NewRedisListCacheStore(client, "lc"), time.Minute, discardLogger())
	m.Close()

	compute := &countingCompute{body: []byte(`[]`), status: http.StatusOK}
	res, err := cache.GetOrCompute(context.Background(), "project:u-1", url.Values{}, compute.fn)
	if err != nil {
		t.Fatalf("expected store failure to be absorbed, got %v", err)
	}
	if res.Hit || res.Status != http.StatusOK || compute.calls != 1 {
		t.Fatalf("expected computed response, got %+v", res)
	}
}
