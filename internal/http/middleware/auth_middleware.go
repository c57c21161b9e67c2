package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sandeepkv93/project-tracker-backend/internal/http/response"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityVerifier turns a bearer token into a verified identity.
type IdentityVerifier interface {
	ParseIdentity(raw string) (security.Identity, error)
}

// AuthMiddleware rejects the request with 401 unless the bearer token yields
// an identity. Downstream handlers only ever see a verified Identity.
func AuthMiddleware(verifier IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			id, err := verifier.ParseIdentity(raw)
			if err != nil {
				outcome, msg := "invalid", "invalid token"
				if errors.Is(err, security.ErrTokenExpired) {
					outcome, msg = "expired", "token has expired"
				}
				observability.RecordAccessTokenValidation(r.Context(), outcome)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", msg, nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid")
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func WithIdentity(ctx context.Context, id security.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (security.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(security.Identity)
	if !ok || strings.TrimSpace(id.UserID) == "" {
		return security.Identity{}, false
	}
	return id, true
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
