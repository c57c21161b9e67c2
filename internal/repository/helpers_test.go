package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/project-tracker-backend/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&domain.User{}, &domain.Permission{}, &domain.RolePermission{}, &domain.Project{}, &domain.Task{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProject(t *testing.T, repo ProjectRepository, owner, name string, created time.Time) *domain.Project {
	t.Helper()
	p := &domain.Project{ID: uuid.NewString(), UserID: owner, Name: name, CreatedAt: created}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("create project %q: %v", name, err)
	}
	return p
}

func seedTask(t *testing.T, repo TaskRepository, scope OwnerScope, title string) *domain.Task {
	t.Helper()
	task := &domain.Task{
		ID:     uuid.NewString(),
		Title:  title,
		Name:   title + " details",
		Expiry: time.Now().Add(24 * time.Hour).UTC(),
	}
	if err := repo.Create(context.Background(), scope, task); err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	return task
}
