package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/project-tracker-backend/internal/http/middleware"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
)

var testIdentity = security.Identity{UserID: "user-a", Email: "alice@example.com", Username: "alice01"}

// withTestIdentity stands in for the auth middleware.
func withTestIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), testIdentity)))
	})
}

func newTestRouter(register func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(withTestIdentity)
	register(r)
	return r
}

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rr.Body.String())
	}
	if env.Success {
		t.Fatalf("expected error envelope, got %s", rr.Body.String())
	}
	return env
}
