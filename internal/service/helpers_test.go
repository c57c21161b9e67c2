package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{
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

type notification struct {
	task    string
	payload map[string]any
}

// recordingNotifier captures notifications synchronously.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, task string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{task: task, payload: payload})
}

func (n *recordingNotifier) tasks() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.task)
	}
	return out
}

var (
	alice = security.Identity{UserID: "user-a", Email: "alice@example.com", Username: "alice01"}
	bob   = security.Identity{UserID: "user-b", Email: "bob@example.com", Username: "bobby01"}
)
