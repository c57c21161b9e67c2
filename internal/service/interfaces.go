package service

//go:generate mockgen -source=interfaces.go -destination=gomock/mock_interfaces.go -package=gomock

import (
	"context"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
)

// PermissionChecker answers whether a user holds at least one of a set of
// permissions.
type PermissionChecker interface {
	HasAny(ctx context.Context, userID string, required []string) (bool, error)
}

type AuthServiceInterface interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

type ProjectServiceInterface interface {
	Create(ctx context.Context, id security.Identity, input CreateProjectInput) (*domain.Project, error)
	Get(ctx context.Context, id security.Identity, projectID string) (*domain.Project, error)
	List(ctx context.Context, id security.Identity, params ProjectListParams, q repository.ListQuery) (repository.PageResult[domain.Project], error)
	Complete(ctx context.Context, id security.Identity, projectID string) (*domain.Project, error)
	Delete(ctx context.Context, id security.Identity, projectID string) (*domain.Project, int64, error)
}

type TaskServiceInterface interface {
	Create(ctx context.Context, id security.Identity, projectID string, input CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, id security.Identity, projectID, taskID string) (*domain.Task, error)
	List(ctx context.Context, id security.Identity, projectID string, params TaskListParams, q repository.ListQuery) (repository.PageResult[domain.Task], error)
	Complete(ctx context.Context, id security.Identity, projectID, taskID string) (*domain.Task, error)
	Delete(ctx context.Context, id security.Identity, projectID, taskID string) (*domain.Task, error)
}

var (
	_ PermissionChecker       = (*PermissionResolver)(nil)
	_ AuthServiceInterface    = (*AuthService)(nil)
	_ ProjectServiceInterface = (*ProjectService)(nil)
	_ TaskServiceInterface    = (*TaskService)(nil)
	_ Notifier                = (*AsyncNotifier)(nil)
	_ TaskQueue               = (*LogTaskQueue)(nil)
	_ TaskQueue               = (*RedisTaskQueue)(nil)
	_ ListCacheStore          = (*NoopListCacheStore)(nil)
	_ ListCacheStore          = (*InMemoryListCacheStore)(nil)
	_ ListCacheStore          = (*SturdyListCacheStore)(nil)
	_ ListCacheStore          = (*RedisListCacheStore)(nil)
	_ LoginGuard              = (*NoopLoginGuard)(nil)
	_ LoginGuard              = (*InMemoryLoginGuard)(nil)
	_ LoginGuard              = (*RedisLoginGuard)(nil)
)
