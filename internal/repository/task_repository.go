package repository

import (
	"context"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"

	"gorm.io/gorm"
)

// TaskRepository methods take an OwnerScope carrying both the caller and the
// parent project; a project the caller does not own behaves as absent.
type TaskRepository interface {
	Create(ctx context.Context, scope OwnerScope, task *domain.Task) error
	FindInProject(ctx context.Context, scope OwnerScope, id string) (*domain.Task, error)
	List(ctx context.Context, filter Filter, q ListQuery) (PageResult[domain.Task], error)
	MarkComplete(ctx context.Context, scope OwnerScope, id string, at time.Time) (*domain.Task, error)
	Delete(ctx context.Context, scope OwnerScope, id string) (*domain.Task, error)
}

type GormTaskRepository struct{ db *gorm.DB }

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(ctx context.Context, scope OwnerScope, task *domain.Task) error {
	if err := scope.validate(ScopeOwnedProject); err != nil {
		recordOperation(ctx, "task", "create", err)
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findOwnedProject(tx, scope, scope.ProjectID); err != nil {
			return err
		}
		task.ProjectID = scope.ProjectID
		return tx.Create(task).Error
	})
	recordOperation(ctx, "task", "create", err)
	return err
}

func (r *GormTaskRepository) FindInProject(ctx context.Context, scope OwnerScope, id string) (*domain.Task, error) {
	t, err := findScopedTask(r.db.WithContext(ctx), scope, id)
	recordOperation(ctx, "task", "find_in_project", err)
	return t, err
}

func (r *GormTaskRepository) List(ctx context.Context, filter Filter, q ListQuery) (PageResult[domain.Task], error) {
	res, err := ExecuteList[domain.Task](ctx, r.db, filter, q)
	recordOperation(ctx, "task", "list", err)
	return res, err
}

// MarkComplete sets action and completed_at the first time only; later calls
// return the task unchanged.
func (r *GormTaskRepository) MarkComplete(ctx context.Context, scope OwnerScope, id string, at time.Time) (*domain.Task, error) {
	var out *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := findScopedTask(tx, scope, id)
		if err != nil {
			return err
		}
		if !t.Action {
			completed := at.UTC()
			if err := tx.Model(&domain.Task{}).Where("id = ? AND action = ?", t.ID, false).
				Updates(map[string]any{"action": true, "completed_at": completed}).Error; err != nil {
				return err
			}
			t.Action = true
			t.CompletedAt = &completed
		}
		out = t
		return nil
	})
	recordOperation(ctx, "task", "mark_complete", err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormTaskRepository) Delete(ctx context.Context, scope OwnerScope, id string) (*domain.Task, error) {
	var out *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := findScopedTask(tx, scope, id)
		if err != nil {
			return err
		}
		if err := tx.Where("id = ?", t.ID).Delete(&domain.Task{}).Error; err != nil {
			return err
		}
		out = t
		return nil
	})
	recordOperation(ctx, "task", "delete", err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func findScopedTask(db *gorm.DB, scope OwnerScope, id string) (*domain.Task, error) {
	if err := scope.validate(ScopeOwnedProject); err != nil {
		return nil, err
	}
	var t domain.Task
	err := scope.apply(db.Model(&domain.Task{}), TaskSchema).Where("tasks.id = ?", id).First(&t).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &t, nil
}
