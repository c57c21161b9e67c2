package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
)

type CreateProjectInput struct {
	Name string `json:"name" validate:"required,min=6,max=1000"`
}

// ProjectListParams are the optional list filters. Zero values mean "not
// sent"; Action is a pointer so an explicit false still filters.
type ProjectListParams struct {
	Name   string
	ID     string
	Action *bool
}

func (p ProjectListParams) fieldValues() repository.FieldValues {
	fv := repository.FieldValues{}
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

type ProjectService struct {
	repo     repository.ProjectRepository
	notifier Notifier
	now      func() time.Time
}

func NewProjectService(repo repository.ProjectRepository, notifier Notifier) *ProjectService {
	return &ProjectService{repo: repo, notifier: notifier, now: time.Now}
}

func (s *ProjectService) Create(ctx context.Context, id security.Identity, input CreateProjectInput) (p *domain.Project, err error) {
	defer observeDomainOp(ctx, "project", "create", time.Now(), &err)

	scope, err := scopeFor(id, "")
	if err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	pid, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	p = &domain.Project{ID: pid.String(), UserID: scope.OwnerID, Name: input.Name, CreatedAt: s.now().UTC()}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id security.Identity, projectID string) (p *domain.Project, err error) {
	defer observeDomainOp(ctx, "project", "get", time.Now(), &err)

	scope, err := scopeFor(id, "")
	if err != nil {
		return nil, err
	}
	return s.repo.FindOwned(ctx, scope, projectID)
}

func (s *ProjectService) List(ctx context.Context, id security.Identity, params ProjectListParams, q repository.ListQuery) (page repository.PageResult[domain.Project], err error) {
	defer observeDomainOp(ctx, "project", "list", time.Now(), &err)

	scope, err := scopeFor(id, "")
	if err != nil {
		return page, err
	}
	filter, err := buildListFilter(repository.ProjectSchema, scope, params.fieldValues(), q)
	if err != nil {
		return page, err
	}
	return s.repo.List(ctx, filter, q)
}

// Complete sets action=true. Completing an already completed project is a no-op.
func (s *ProjectService) Complete(ctx context.Context, id security.Identity, projectID string) (p *domain.Project, err error) {
	defer observeDomainOp(ctx, "project", "complete", time.Now(), &err)

	scope, err := scopeFor(id, "")
	if err != nil {
		return nil, err
	}
	return s.repo.MarkComplete(ctx, scope, projectID)
}

// Delete removes the project with its tasks and fires send_mail_delete.
func (s *ProjectService) Delete(ctx context.Context, id security.Identity, projectID string) (p *domain.Project, removedTasks int64, err error) {
	defer observeDomainOp(ctx, "project", "delete", time.Now(), &err)

	scope, err := scopeFor(id, "")
	if err != nil {
		return nil, 0, err
	}
	p, removedTasks, err = s.repo.DeleteCascade(ctx, scope, projectID)
	if err != nil {
		return nil, 0, err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, TaskSendMailDelete, map[string]any{
			"email":         id.Email,
			"username":      id.Username,
			"name":          p.Name,
			"deletion_date": s.now().Truncate(time.Second).Format(domain.ExpiryLayout),
		})
	}
	return p, removedTasks, nil
}

func buildListFilter(schema repository.ResourceSchema, scope repository.OwnerScope, values repository.FieldValues, q repository.ListQuery) (repository.Filter, error) {
	if err := q.Validate(schema); err != nil {
		return repository.Filter{}, NewValidationError("query", strings.TrimPrefix(err.Error(), repository.ErrInvalidListQuery.Error()+": "))
	}
	filter, err := repository.BuildFilter(schema, scope, values)
	if errors.Is(err, repository.ErrUnknownFilterField) {
		return repository.Filter{}, NewValidationError("query", err.Error())
	}
	return filter, err
}

func observeDomainOp(ctx context.Context, resource, op string, start time.Time, errp *error) {
	outcome := "success"
	if err := *errp; err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			outcome = "not_found"
		case errors.Is(err, ErrUnauthorized):
			outcome = "unauthorized"
		default:
			if _, ok := IsValidation(err); ok {
				outcome = "bad_request"
			} else {
				outcome = "error"
			}
		}
	}
	observability.RecordDomainOperation(ctx, resource, op, outcome, time.Since(start))
}
