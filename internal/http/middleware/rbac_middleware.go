package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sandeepkv93/project-tracker-backend/internal/http/response"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

// RoutePolicy is declared next to each route registration. Permissions is
// matched with any-of semantics and must not be empty. CacheNamespace, when
// set, memoizes successful GET responses under that namespace.
type RoutePolicy struct {
	Name           string
	Permissions    []string
	CacheNamespace string
}

func (p RoutePolicy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("route policy: name is required")
	}
	if len(p.Permissions) == 0 {
		return fmt.Errorf("route policy %s: at least one permission is required", p.Name)
	}
	for _, perm := range p.Permissions {
		if strings.TrimSpace(perm) == "" {
			return fmt.Errorf("route policy %s: empty permission name", p.Name)
		}
	}
	return nil
}

// RequirePermissions enforces policy for the authenticated caller. It panics
// on an invalid policy so a misdeclared route fails at startup.
func RequirePermissions(checker service.PermissionChecker, policy RoutePolicy) func(http.Handler) http.Handler {
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	required := append([]string(nil), policy.Permissions...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				observability.RecordPermissionDecision(r.Context(), policy.Name, "unauthenticated")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			allowed, err := checker.HasAny(r.Context(), id.UserID, required)
			switch {
			case errors.Is(err, service.ErrUnauthorized):
				observability.RecordPermissionDecision(r.Context(), policy.Name, "unauthenticated")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unknown user", nil)
				return
			case err != nil:
				observability.RecordPermissionDecision(r.Context(), policy.Name, "error")
				response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", "permission lookup unavailable", nil)
				return
			case !allowed:
				observability.RecordPermissionDecision(r.Context(), policy.Name, "deny")
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permission", map[string]any{"required_any": required})
				return
			}
			observability.RecordPermissionDecision(r.Context(), policy.Name, "allow")
			next.ServeHTTP(w, r)
		})
	}
}
