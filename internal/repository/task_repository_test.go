package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
)

func TestTaskRepositoryCreateRequiresOwnedProject(t *testing.T) {
	db := newRepositoryDBForTest(t)
	projects := NewProjectRepository(db)
	tasks := NewTaskRepository(db)
	p := seedProject(t, projects, "user-a", "Owned", time.Now().UTC())

	task := &domain.Task{ID: uuid.NewString(), Title: "sneaky", Name: "x", Expiry: time.Now().UTC()}
	err := tasks.Create(context.Background(), OwnerScope{OwnerID: "user-b", ProjectID: p.ID}, task)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found creating into foreign project, got %v", err)
	}
	if err := tasks.Create(context.Background(), OwnerScope{OwnerID: "user-a"}, task); !errors.Is(err, ErrMissingScope) {
		t.Fatalf("expected missing scope without project, got %v", err)
	}
}

func TestTaskRepositoryFiltersWithinProject(t *testing.T) {
	db := newRepositoryDBForTest(t)
	projects := NewProjectRepository(db)
	tasks := NewTaskRepository(db)
	p := seedProject(t, projects, "user-a", "Filters", time.Now().UTC())
	scope := OwnerScope{OwnerID: "user-a", ProjectID: p.ID}
	done := seedTask(t, tasks, scope, "Write report")
	seedTask(t, tasks, scope, "review REPORT")
	seedTask(t, tasks, scope, "deploy")
	if _, err := tasks.MarkComplete(context.Background(), scope, done.ID, time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}

	f, _ := BuildFilter(TaskSchema, scope, FieldValues{"title": Some("report")})
	page, err := tasks.List(context.Background(), f, DefaultListQuery())
	if err != nil {
		t.Fatalf("list by title: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 report tasks, got %d", page.Total)
	}

	f, _ = BuildFilter(TaskSchema, scope, FieldValues{"action": Some(false)})
	page, err = tasks.List(context.Background(), f, DefaultListQuery())
	if err != nil {
		t.Fatalf("list by action=false: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected action=false to match the 2 open tasks, got %d", page.Total)
	}
	for _, item := range page.Items {
		if item.Action {
			t.Fatalf("unexpected completed task in action=false page: %+v", item)
		}
	}

	f, _ = BuildFilter(TaskSchema, OwnerScope{OwnerID: "user-b", ProjectID: p.ID}, nil)
	page, err = tasks.List(context.Background(), f, DefaultListQuery())
	if err != nil {
		t.Fatalf("foreign list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected foreign owner to see nothing, got %d", page.Total)
	}
}

func TestTaskRepositoryMarkCompleteKeepsFirstTimestamp(t *testing.T) {
	db := newRepositoryDBForTest(t)
	projects := NewProjectRepository(db)
	tasks := NewTaskRepository(db)
	p := seedProject(t, projects, "user-a", "Complete", time.Now().UTC())
	scope := OwnerScope{OwnerID: "user-a", ProjectID: p.ID}
	task := seedTask(t, tasks, scope, "finish")

	firstAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	first, err := tasks.MarkComplete(context.Background(), scope, task.ID, firstAt)
	if err != nil {
		t.Fatalf("first complete: %v", err)
	}
	second, err := tasks.MarkComplete(context.Background(), scope, task.ID, firstAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if !second.Action || second.CompletedAt == nil || !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatalf("expected unchanged completion, first=%v second=%v", first.CompletedAt, second.CompletedAt)
	}

	if _, err := tasks.Delete(context.Background(), OwnerScope{OwnerID: "user-b", ProjectID: p.ID}, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found deleting foreign task, got %v", err)
	}
	if _, err := tasks.Delete(context.Background(), scope, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tasks.FindInProject(context.Background(), scope, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
