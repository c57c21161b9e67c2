package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestInMemoryListCacheStoreGetSetExpiry(t *testing.T) {
	store := NewInMemoryListCacheStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Set(ctx, "project:u-1", "k1", []byte(`{"x":1}`), time.Minute); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	got, ok, err := store.Get(ctx, "project:u-1", "k1")
	if err != nil || !ok {
		t.Fatalf("expected cache hit, ok=%v err=%v", ok, err)
	}
	if string(got) != `{"x":1}` {
		t.Fatalf("unexpected cache payload: %s", got)
	}
	if _, ok, _ := store.Get(ctx, "project:u-2", "k1"); ok {
		t.Fatal("expected namespaces to be isolated")
	}

	now = now.Add(59 * time.Second)
	if _, ok, _ := store.Get(ctx, "project:u-1", "k1"); !ok {
		t.Fatal("expected entry to live until ttl")
	}
	now = now.Add(time.Second)
	if _, ok, _ := store.Get(ctx, "project:u-1", "k1"); ok {
		t.Fatal("expected entry to expire at ttl")
	}
	if err := store.Set(ctx, "project:u-1", "k2", []byte(`{}`), 0); err != nil {
		t.Fatalf("set with zero ttl: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "project:u-1", "k2"); ok {
		t.Fatal("zero ttl must not store")
	}
}

func TestNoopListCacheStoreAlwaysMisses(t *testing.T) {
	store := NewNoopListCacheStore()
	ctx := context.Background()
	if err := store.Set(ctx, "task", "k", []byte(`{}`), time.Minute); err != nil {
		t.Fatalf("set noop cache: %v", err)
	}
	if _, ok, err := store.Get(ctx, "task", "k"); ok || err != nil {
		t.Fatalf("expected noop miss, ok=%v err=%v", ok, err)
	}
}

func TestSturdyListCacheStoreGetSet(t *testing.T) {
	store := NewSturdyListCacheStore(100, time.Minute)
	ctx := context.Background()
	if err := store.Set(ctx, "project:u-1", "k1", []byte(`[1,2]`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := store.Get(ctx, "project:u-1", "k1")
	if err != nil || !ok || string(got) != `[1,2]` {
		t.Fatalf("expected hit with payload, got %q ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := store.Get(ctx, "project:u-2", "k1"); ok {
		t.Fatal("expected namespaces to be isolated")
	}
}

func TestRedisListCacheStoreUsesServerTTL(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisListCacheStore(client, "test_cache")
	ctx := context.Background()

	if err := store.Set(ctx, "task:u-1", "abc", []byte(`{"ok":true}`), 60*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !m.Exists("test_cache:data:task:u-1:abc") {
		t.Fatalf("expected prefixed key, have %v", m.Keys())
	}
	if ttl := m.TTL("test_cache:data:task:u-1:abc"); ttl != 60*time.Second {
		t.Fatalf("expected 60s ttl, got %v", ttl)
	}
	got, ok, err := store.Get(ctx, "task:u-1", "abc")
	if err != nil || !ok || string(got) != `{"ok":true}` {
		t.Fatalf("expected hit, got %q ok=%v err=%v", got, ok, err)
	}

	m.FastForward(61 * time.Second)
	if _, ok, err := store.Get(ctx, "task:u-1", "abc"); ok || err != nil {
		t.Fatalf("expected miss after ttl, ok=%v err=%v", ok, err)
	}
}
