package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

var defaultPermissions = []domain.Permission{
	{Name: PermissionRead, Description: "List and view own projects and tasks"},
	{Name: PermissionWrite, Description: "Create, complete and delete own projects and tasks"},
}

var defaultRoleGrants = []domain.RolePermission{
	{RoleName: domain.DefaultRoleName, PermissionName: PermissionRead},
	{RoleName: domain.DefaultRoleName, PermissionName: PermissionWrite},
	{RoleName: "viewer", PermissionName: PermissionRead},
}

type RBACSyncReport struct {
	CreatedPermissions int  `json:"created_permissions"`
	BoundPermissions   int  `json:"bound_permissions"`
	Noop               bool `json:"noop"`
}

func Seed(db *gorm.DB) error {
	_, err := SeedSync(db)
	return err
}

// SeedSync inserts the default permission graph and reports what changed.
func SeedSync(db *gorm.DB) (*RBACSyncReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "seed", time.Since(start))
	}()

	report := &RBACSyncReport{}
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, p := range defaultPermissions {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
			if res.Error != nil {
				return res.Error
			}
			report.CreatedPermissions += int(res.RowsAffected)
		}
		for _, g := range defaultRoleGrants {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&g)
			if res.Error != nil {
				return res.Error
			}
			report.BoundPermissions += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
		return nil, err
	}
	report.Noop = report.CreatedPermissions == 0 && report.BoundPermissions == 0
	observability.RecordDatabaseStartupEvent(context.Background(), "seed", "success")
	return report, nil
}

// PlanSeed reports what SeedSync would change without writing.
func PlanSeed(db *gorm.DB) (*RBACSyncReport, error) {
	report := &RBACSyncReport{}
	for _, p := range defaultPermissions {
		var count int64
		if err := db.Model(&domain.Permission{}).Where("name = ?", p.Name).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			report.CreatedPermissions++
		}
	}
	for _, g := range defaultRoleGrants {
		var count int64
		if err := db.Model(&domain.RolePermission{}).
			Where("role_name = ? AND permission_name = ?", g.RoleName, g.PermissionName).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			report.BoundPermissions++
		}
	}
	report.Noop = report.CreatedPermissions == 0 && report.BoundPermissions == 0
	return report, nil
}

// AssignRole sets the single role of the user identified by email.
func AssignRole(db *gorm.DB, email, role string) error {
	normalized := strings.TrimSpace(strings.ToLower(email))
	role = strings.TrimSpace(role)
	if normalized == "" {
		return fmt.Errorf("email is required")
	}
	if role == "" {
		return fmt.Errorf("role is required")
	}
	tx := db.Model(&domain.User{}).Where("email = ?", normalized).Update("role", role)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
