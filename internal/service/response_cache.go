package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"golang.org/x/sync/singleflight"
)

const DefaultListCacheTTL = 60 * time.Second

// ComputeFunc produces a response body and status on a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, int, error)

type CachedResponse struct {
	Body   []byte
	Status int
	Hit    bool
}

// ResponseCache memoizes successful list responses. Entries are never
// invalidated on write; a reader may see data up to ttl old.
type ResponseCache struct {
	store  ListCacheStore
	ttl    time.Duration
	logger *slog.Logger
	sf     singleflight.Group
}

func NewResponseCache(store ListCacheStore, ttl time.Duration, logger *slog.Logger) *ResponseCache {
	if store == nil {
		store = NewNoopListCacheStore()
	}
	if ttl <= 0 {
		ttl = DefaultListCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{store: store, ttl: ttl, logger: logger}
}

func (c *ResponseCache) TTL() time.Duration { return c.ttl }

// Fingerprint hashes params with keys and each key's values sorted, so the
// same parameter set in any order yields the same key.
func Fingerprint(params url.Values) string {
	normalized := make(url.Values, len(params))
	for k, vs := range params {
		sorted := append([]string(nil), vs...)
		sort.Strings(sorted)
		normalized[k] = sorted
	}
	// Encode sorts by key.
	sum := sha256.Sum256([]byte(normalized.Encode()))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute serves a stored body as a 200 on hit. On miss it runs compute
// and stores the body only when the status is below 400. Store failures are
// logged and degrade to computing the response.
func (c *ResponseCache) GetOrCompute(ctx context.Context, namespace string, params url.Values, compute ComputeFunc) (CachedResponse, error) {
	key := Fingerprint(params)
	resource := metricResource(namespace)

	body, ok, err := c.store.Get(ctx, namespace, key)
	switch {
	case err != nil:
		observability.RecordListCacheEvent(ctx, resource, "error")
		c.logger.WarnContext(ctx, "list cache read failed", "namespace", namespace, "error", err)
	case ok:
		observability.RecordListCacheEvent(ctx, resource, "hit")
		return CachedResponse{Body: body, Status: http.StatusOK, Hit: true}, nil
	default:
		observability.RecordListCacheEvent(ctx, resource, "miss")
	}

	v, err, _ := c.sf.Do(namespace+"|"+key, func() (any, error) {
		body, status, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		res := CachedResponse{Body: body, Status: status}
		if status >= http.StatusBadRequest {
			observability.RecordListCacheEvent(ctx, resource, "skip")
			return res, nil
		}
		if err := c.store.Set(ctx, namespace, key, body, c.ttl); err != nil {
			observability.RecordListCacheEvent(ctx, resource, "error")
			c.logger.WarnContext(ctx, "list cache write failed", "namespace", namespace, "error", err)
			return res, nil
		}
		observability.RecordListCacheEvent(ctx, resource, "store")
		return res, nil
	})
	if err != nil {
		return CachedResponse{}, err
	}
	return v.(CachedResponse), nil
}

// metricResource keeps the metric label to the leading resource name of a
// caller-scoped namespace such as "project:<user>:<path>".
func metricResource(namespace string) string {
	resource, _, _ := strings.Cut(namespace, ":")
	return resource
}
