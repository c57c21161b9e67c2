package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"golang.org/x/sync/singleflight"
)

// PermissionResolver walks user -> role -> permission on every call. Nothing
// is cached across requests, so a role change takes effect immediately.
type PermissionResolver struct {
	users repository.UserRepository
	perms repository.PermissionRepository
	sf    singleflight.Group
}

func NewPermissionResolver(users repository.UserRepository, perms repository.PermissionRepository) *PermissionResolver {
	return &PermissionResolver{users: users, perms: perms}
}

// Resolve returns the sorted, de-duplicated permission names granted to the
// user's role. A role with no grants resolves to an empty set. A missing user
// or empty id is ErrUnauthorized; store failures wrap ErrPermissionLookup.
func (r *PermissionResolver) Resolve(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthorized
	}
	start := time.Now()
	v, err, _ := r.sf.Do(userID, func() (any, error) {
		return r.resolve(ctx, userID)
	})
	outcome := "success"
	switch {
	case errors.Is(err, ErrUnauthorized):
		outcome = "unknown_user"
	case err != nil:
		outcome = "error"
	}
	observability.RecordPermissionLookupDuration(ctx, outcome, time.Since(start))
	if err != nil {
		return nil, err
	}
	perms := v.([]string)
	return append([]string(nil), perms...), nil
}

func (r *PermissionResolver) resolve(ctx context.Context, userID string) ([]string, error) {
	user, err := r.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load user: %v", ErrPermissionLookup, err)
	}
	if strings.TrimSpace(user.Role) == "" {
		return []string{}, nil
	}
	names, err := r.perms.NamesByRole(ctx, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: load role %q: %v", ErrPermissionLookup, user.Role, err)
	}
	set := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := set[n]; dup {
			continue
		}
		set[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// HasAny reports whether the resolved set intersects required. An empty
// required set never matches.
func (r *PermissionResolver) HasAny(ctx context.Context, userID string, required []string) (bool, error) {
	if len(required) == 0 {
		return false, nil
	}
	perms, err := r.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	return intersects(perms, required), nil
}

func intersects(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, p := range have {
		set[p] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}
