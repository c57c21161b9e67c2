package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/sandeepkv93/project-tracker-backend/internal/http/response"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

const CacheStatusHeader = "X-Cache"

// ListCache serves GET responses through cache. Entries are keyed by
// namespace, caller and path, then by a fingerprint of the query string, so
// one tenant's page is never replayed to another. Other methods pass through.
func ListCache(cache *service.ResponseCache, namespace string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cache == nil || namespace == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			scoped := namespace + ":" + id.UserID + ":" + r.URL.Path

			var captured *bufferedResponse
			res, err := cache.GetOrCompute(r.Context(), scoped, r.URL.Query(), func(context.Context) ([]byte, int, error) {
				captured = newBufferedResponse()
				next.ServeHTTP(captured, r)
				return captured.body.Bytes(), captured.statusCode(), nil
			})
			if err != nil {
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to build response", nil)
				return
			}
			if captured != nil {
				for k, vs := range captured.header {
					w.Header()[k] = vs
				}
			}
			if res.Hit {
				w.Header().Set(CacheStatusHeader, "HIT")
			} else {
				w.Header().Set(CacheStatusHeader, "MISS")
			}
			response.Raw(w, res.Status, res.Body)
		})
	}
}

type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}
