package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
)

type CreateTaskInput struct {
	Title string `json:"title" validate:"required,maxwords=50"`
	Name  string `json:"name" validate:"required,maxwords=1000"`
	// Expiry uses domain.ExpiryLayout. Empty or unparseable values fall back
	// to midnight at the start of tomorrow.
	Expiry string `json:"expiry"`
}

type TaskListParams struct {
	Title  string
	Name   string
	ID     string
	Action *bool
}

func (p TaskListParams) fieldValues() repository.FieldValues {
	fv := repository.FieldValues{}
	if p.Title != "" {
		fv["title"] = repository.Some(p.Title)
	}
	if p.Name != "" {
		fv["name"] = repository.Some(p.Name)
	}
	if p.ID != "" {
		fv["id"] = repository.Some(p.ID)
	}
	if p.Action != nil {
		fv["action"] = repository.Some(*p.Action)
	}
	return fv
}

type TaskService struct {
	repo repository.TaskRepository
	now  func() time.Time
}

func NewTaskService(repo repository.TaskRepository) *TaskService {
	return &TaskService{repo: repo, now: time.Now}
}

func (s *TaskService) Create(ctx context.Context, id security.Identity, projectID string, input CreateTaskInput) (t *domain.Task, err error) {
	defer observeDomainOp(ctx, "task", "create", time.Now(), &err)

	scope, err := scopeFor(id, projectID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	tid, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := s.now()
	t = &domain.Task{
		ID:        tid.String(),
		Title:     strings.TrimSpace(input.Title),
		Name:      strings.TrimSpace(input.Name),
		Expiry:    parseExpiry(input.Expiry, now),
		CreatedAt: now.UTC(),
	}
	if err := s.repo.Create(ctx, scope, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, id security.Identity, projectID, taskID string) (t *domain.Task, err error) {
	defer observeDomainOp(ctx, "task", "get", time.Now(), &err)

	scope, err := scopeFor(id, projectID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindInProject(ctx, scope, taskID)
}

func (s *TaskService) List(ctx context.Context, id security.Identity, projectID string, params TaskListParams, q repository.ListQuery) (page repository.PageResult[domain.Task], err error) {
	defer observeDomainOp(ctx, "task", "list", time.Now(), &err)

	scope, err := scopeFor(id, projectID)
	if err != nil {
		return page, err
	}
	filter, err := buildListFilter(repository.TaskSchema, scope, params.fieldValues(), q)
	if err != nil {
		return page, err
	}
	return s.repo.List(ctx, filter, q)
}

// Complete sets action=true and completed_at=now the first time only.
func (s *TaskService) Complete(ctx context.Context, id security.Identity, projectID, taskID string) (t *domain.Task, err error) {
	defer observeDomainOp(ctx, "task", "complete", time.Now(), &err)

	scope, err := scopeFor(id, projectID)
	if err != nil {
		return nil, err
	}
	return s.repo.MarkComplete(ctx, scope, taskID, s.now())
}

func (s *TaskService) Delete(ctx context.Context, id security.Identity, projectID, taskID string) (t *domain.Task, err error) {
	defer observeDomainOp(ctx, "task", "delete", time.Now(), &err)

	scope, err := scopeFor(id, projectID)
	if err != nil {
		return nil, err
	}
	return s.repo.Delete(ctx, scope, taskID)
}

func parseExpiry(raw string, now time.Time) time.Time {
	if raw = strings.TrimSpace(raw); raw != "" {
		if t, err := time.ParseInLocation(domain.ExpiryLayout, raw, now.Location()); err == nil {
			return t
		}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
