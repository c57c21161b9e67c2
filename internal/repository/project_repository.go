package repository

import (
	"context"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"

	"gorm.io/gorm"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	FindOwned(ctx context.Context, scope OwnerScope, id string) (*domain.Project, error)
	List(ctx context.Context, filter Filter, q ListQuery) (PageResult[domain.Project], error)
	MarkComplete(ctx context.Context, scope OwnerScope, id string) (*domain.Project, error)
	// DeleteCascade removes the project and all of its tasks in one transaction.
	DeleteCascade(ctx context.Context, scope OwnerScope, id string) (*domain.Project, int64, error)
}

type GormProjectRepository struct{ db *gorm.DB }

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	if project.UserID == "" {
		recordOperation(ctx, "project", "create", ErrMissingScope)
		return ErrMissingScope
	}
	err := r.db.WithContext(ctx).Create(project).Error
	recordOperation(ctx, "project", "create", err)
	return err
}

func (r *GormProjectRepository) FindOwned(ctx context.Context, scope OwnerScope, id string) (*domain.Project, error) {
	p, err := findOwnedProject(r.db.WithContext(ctx), scope, id)
	recordOperation(ctx, "project", "find_owned", err)
	return p, err
}

func (r *GormProjectRepository) List(ctx context.Context, filter Filter, q ListQuery) (PageResult[domain.Project], error) {
	res, err := ExecuteList[domain.Project](ctx, r.db, filter, q)
	recordOperation(ctx, "project", "list", err)
	return res, err
}

func (r *GormProjectRepository) MarkComplete(ctx context.Context, scope OwnerScope, id string) (*domain.Project, error) {
	var out *domain.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findOwnedProject(tx, scope, id)
		if err != nil {
			return err
		}
		if !p.Action {
			if err := tx.Model(&domain.Project{}).Where("id = ?", p.ID).Update("action", true).Error; err != nil {
				return err
			}
			p.Action = true
		}
		out = p
		return nil
	})
	recordOperation(ctx, "project", "mark_complete", err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormProjectRepository) DeleteCascade(ctx context.Context, scope OwnerScope, id string) (*domain.Project, int64, error) {
	var (
		out   *domain.Project
		tasks int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findOwnedProject(tx, scope, id)
		if err != nil {
			return err
		}
		res := tx.Where("project_id = ?", p.ID).Delete(&domain.Task{})
		if res.Error != nil {
			return res.Error
		}
		tasks = res.RowsAffected
		if err := tx.Where("id = ? AND user_id = ?", p.ID, scope.OwnerID).Delete(&domain.Project{}).Error; err != nil {
			return err
		}
		out = p
		return nil
	})
	recordOperation(ctx, "project", "delete_cascade", err)
	if err != nil {
		return nil, 0, err
	}
	return out, tasks, nil
}

func findOwnedProject(db *gorm.DB, scope OwnerScope, id string) (*domain.Project, error) {
	if err := scope.validate(ScopeOwner); err != nil {
		return nil, err
	}
	var p domain.Project
	err := scope.apply(db.Model(&domain.Project{}), ProjectSchema).Where("projects.id = ?", id).First(&p).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}
