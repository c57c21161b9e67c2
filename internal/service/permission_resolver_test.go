package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	repogomock "github.com/sandeepkv93/project-tracker-backend/internal/repository/gomock"
	"go.uber.org/mock/gomock"
)

func TestPermissionResolverResolve(t *testing.T) {
	t.Run("role grants collapse to a sorted set", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := repogomock.NewMockUserRepository(ctrl)
		perms := repogomock.NewMockPermissionRepository(ctrl)
		users.EXPECT().FindByID(gomock.Any(), "u-1").Return(&domain.User{ID: "u-1", Role: "user"}, nil)
		perms.EXPECT().NamesByRole(gomock.Any(), "user").Return([]string{"write", "read", "write", ""}, nil)

		got, err := NewPermissionResolver(users, perms).Resolve(context.Background(), "u-1")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if len(got) != 2 || got[0] != "read" || got[1] != "write" {
			t.Fatalf("unexpected permissions: %v", got)
		}
	})

	t.Run("role missing from mapping resolves to empty set", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := repogomock.NewMockUserRepository(ctrl)
		perms := repogomock.NewMockPermissionRepository(ctrl)
		users.EXPECT().FindByID(gomock.Any(), "u-2").Return(&domain.User{ID: "u-2", Role: "ghost"}, nil)
		perms.EXPECT().NamesByRole(gomock.Any(), "ghost").Return(nil, nil)

		got, err := NewPermissionResolver(users, perms).Resolve(context.Background(), "u-2")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty set, got %v", got)
		}
	})

	t.Run("missing user is unauthorized", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := repogomock.NewMockUserRepository(ctrl)
		perms := repogomock.NewMockPermissionRepository(ctrl)
		users.EXPECT().FindByID(gomock.Any(), "gone").Return(nil, repository.ErrNotFound)
		perms.EXPECT().NamesByRole(gomock.Any(), gomock.Any()).Times(0)

		if _, err := NewPermissionResolver(users, perms).Resolve(context.Background(), "gone"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("empty identity never reaches the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := repogomock.NewMockUserRepository(ctrl)
		perms := repogomock.NewMockPermissionRepository(ctrl)
		users.EXPECT().FindByID(gomock.Any(), gomock.Any()).Times(0)

		if _, err := NewPermissionResolver(users, perms).Resolve(context.Background(), "  "); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("store failure is a lookup error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := repogomock.NewMockUserRepository(ctrl)
		perms := repogomock.NewMockPermissionRepository(ctrl)
		users.EXPECT().FindByID(gomock.Any(), "u-3").Return(&domain.User{ID: "u-3", Role: "user"}, nil)
		perms.EXPECT().NamesByRole(gomock.Any(), "user").Return(nil, errors.New("db down"))

		if _, err := NewPermissionResolver(users, perms).Resolve(context.Background(), "u-3"); !errors.Is(err, ErrPermissionLookup) {
			t.Fatalf("expected ErrPermissionLookup, got %v", err)
		}
	})
}

func TestPermissionResolverHasAny(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := repogomock.NewMockUserRepository(ctrl)
	perms := repogomock.NewMockPermissionRepository(ctrl)
	users.EXPECT().FindByID(gomock.Any(), "viewer-1").Return(&domain.User{ID: "viewer-1", Role: "viewer"}, nil).AnyTimes()
	perms.EXPECT().NamesByRole(gomock.Any(), "viewer").Return([]string{"read"}, nil).AnyTimes()
	resolver := NewPermissionResolver(users, perms)
	ctx := context.Background()

	cases := []struct {
		required []string
		want     bool
	}{
		{[]string{"read"}, true},
		{[]string{"write"}, false},
		{[]string{"write", "read"}, true},
		{nil, false},
		{[]string{}, false},
	}
	for _, tc := range cases {
		got, err := resolver.HasAny(ctx, "viewer-1", tc.required)
		if err != nil {
			t.Fatalf("has any %v: %v", tc.required, err)
		}
		if got != tc.want {
			t.Fatalf("has any %v: got %v want %v", tc.required, got, tc.want)
		}
	}
}

func TestPermissionResolverAgainstSeededStore(t *testing.T) {
	db := newServiceDBForTest(t)
	if err := db.Create(&[]domain.Permission{{Name: "read"}, {Name: "write"}}).Error; err != nil {
		t.Fatalf("seed permissions: %v", err)
	}
	if err := db.Create(&[]domain.RolePermission{
		{RoleName: "user", PermissionName: "read"},
		{RoleName: "user", PermissionName: "write"},
		{RoleName: "viewer", PermissionName: "read"},
	}).Error; err != nil {
		t.Fatalf("seed grants: %v", err)
	}
	for _, u := range []domain.User{
		{ID: "w", Username: "writer1", Email: "w@example.com", PasswordHash: "x", Role: "user"},
		{ID: "r", Username: "reader1", Email: "r@example.com", PasswordHash: "x", Role: "viewer"},
		{ID: "n", Username: "nobody1", Email: "n@example.com", PasswordHash: "x", Role: "unmapped"},
	} {
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	resolver := NewPermissionResolver(repository.NewUserRepository(db), repository.NewPermissionRepository(db))
	ctx := context.Background()

	check := func(user string, required []string, want bool) {
		t.Helper()
		got, err := resolver.HasAny(ctx, user, required)
		if err != nil {
			t.Fatalf("has any %s %v: %v", user, required, err)
		}
		if got != want {
			t.Fatalf("has any %s %v: got %v want %v", user, required, got, want)
		}
	}
	check("w", []string{"write"}, true)
	check("r", []string{"write"}, false)
	check("r", []string{"read"}, true)
	check("n", []string{"read"}, false)
	check("n", []string{"read", "write"}, false)

	if _, err := resolver.HasAny(ctx, "missing", []string{"read"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown user, got %v", err)
	}
}
