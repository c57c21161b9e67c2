package repository

import (
	"context"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"

	"gorm.io/gorm"
)

type PermissionRepository interface {
	// NamesByRole returns the canonical names of the permissions granted to
	// role. Grants that point at a missing permission are skipped.
	NamesByRole(ctx context.Context, role string) ([]string, error)
	List(ctx context.Context) ([]domain.Permission, error)
}

type GormPermissionRepository struct{ db *gorm.DB }

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &GormPermissionRepository{db: db}
}

func (r *GormPermissionRepository) NamesByRole(ctx context.Context, role string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("role_permissions").
		Joins("JOIN permissions ON permissions.name = role_permissions.permission_name").
		Where("role_permissions.role_name = ?", role).
		Pluck("permissions.name", &names).Error
	recordOperation(ctx, "permission", "names_by_role", err)
	return names, err
}

func (r *GormPermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	var perms []domain.Permission
	err := r.db.WithContext(ctx).Order("name").Find(&perms).Error
	recordOperation(ctx, "permission", "list", err)
	return perms, err
}
