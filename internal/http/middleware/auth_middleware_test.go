package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/security"
)

func newTestJWT() *security.JWTManager {
	return security.NewJWTManager("project-tracker", "project-tracker-api", "middleware-test-secret-0123456789")
}

func serveAuthed(t *testing.T, authorization string) (*httptest.ResponseRecorder, security.Identity) {
	t.Helper()
	var seen security.Identity
	h := AuthMiddleware(newTestJWT())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("expected identity in context")
		}
		seen = id
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/project", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, seen
}

func TestAuthMiddlewareAcceptsValidBearer(t *testing.T) {
	token, err := newTestJWT().SignAccessToken(security.Identity{UserID: "user-1", Email: "a@example.com", Username: "alice1"}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rr, id := serveAuthed(t, "Bearer "+token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if id.UserID != "user-1" || id.Email != "a@example.com" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	expired, err := newTestJWT().SignAccessToken(security.Identity{UserID: "user-1"}, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	cases := []struct {
		name   string
		header string
		msg    string
	}{
		{name: "missing", header: "", msg: "missing access token"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", msg: "missing access token"},
		{name: "garbage", header: "Bearer not-a-jwt", msg: "invalid token"},
		{name: "expired", header: "Bearer " + expired, msg: "token has expired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := AuthMiddleware(newTestJWT())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("expected request to be rejected")
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/project", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.msg) {
				t.Fatalf("expected %q in body, got %s", tc.msg, rr.Body.String())
			}
		})
	}
}
