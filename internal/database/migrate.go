package database

import (
	"context"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"

	"gorm.io/gorm"
)

func Models() []any {
	return []any{
		&domain.User{},
		&domain.Permission{},
		&domain.RolePermission{},
		&domain.Project{},
		&domain.Task{},
	}
}

func Migrate(db *gorm.DB) error {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	}()
	if err := db.AutoMigrate(Models()...); err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "success")
	return nil
}

// TableNames resolves the table of every migrated model.
func TableNames(db *gorm.DB) []string {
	names := make([]string, 0, len(Models()))
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			continue
		}
		names = append(names, stmt.Schema.Table)
	}
	return names
}

// PendingModels lists tables that do not exist yet.
func PendingModels(db *gorm.DB) []string {
	var pending []string
	for _, table := range TableNames(db) {
		if !db.Migrator().HasTable(table) {
			pending = append(pending, table)
		}
	}
	return pending
}
