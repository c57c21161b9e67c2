package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"

	"gorm.io/gorm"
)

func TestBuildFilterSkipsAbsentAndEmptyValues(t *testing.T) {
	f, err := BuildFilter(ProjectSchema, OwnerScope{OwnerID: "u-1"}, FieldValues{
		"name":   Some(""),
		"id":     {},
		"action": Some(nil),
	})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	if len(f.Clauses) != 0 {
		t.Fatalf("expected no clauses, got %+v", f.Clauses)
	}
	if f.Scope.OwnerID != "u-1" {
		t.Fatalf("expected owner scope to be kept, got %+v", f.Scope)
	}
}

func TestBuildFilterKeepsFalsyButPresentValues(t *testing.T) {
	f, err := BuildFilter(TaskSchema, OwnerScope{OwnerID: "u-1", ProjectID: "p-1"}, FieldValues{
		"action": Some(false),
		"id":     Some("0"),
	})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	if len(f.Clauses) != 2 {
		t.Fatalf("expected two clauses, got %+v", f.Clauses)
	}
	// clauses are ordered by field name
	if f.Clauses[0].Field != "action" || f.Clauses[0].Value != false || f.Clauses[0].Op != OpEquals {
		t.Fatalf("unexpected action clause: %+v", f.Clauses[0])
	}
	if f.Clauses[1].Field != "id" || f.Clauses[1].Value != "0" {
		t.Fatalf("unexpected id clause: %+v", f.Clauses[1])
	}
}

func TestBuildFilterTextFieldsUseContains(t *testing.T) {
	title := "Write"
	f, err := BuildFilter(TaskSchema, OwnerScope{OwnerID: "u-1", ProjectID: "p-1"}, FieldValues{
		"title": Some(&title),
		"name":  Some("draft"),
	})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	for _, c := range f.Clauses {
		if c.Op != OpContains {
			t.Fatalf("expected contains for %s, got %s", c.Field, c.Op)
		}
	}
	if f.Clauses[1].Value != "Write" {
		t.Fatalf("expected dereferenced title, got %#v", f.Clauses[1].Value)
	}
}

func TestBuildFilterRejectsMissingScopeAndUnknownFields(t *testing.T) {
	if _, err := BuildFilter(ProjectSchema, OwnerScope{}, nil); !errors.Is(err, ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope, got %v", err)
	}
	if _, err := BuildFilter(TaskSchema, OwnerScope{OwnerID: "u-1"}, nil); !errors.Is(err, ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope for task without project, got %v", err)
	}
	if _, err := BuildFilter(ProjectSchema, OwnerScope{OwnerID: "u-1"}, FieldValues{"user_id": Some("u-2")}); !errors.Is(err, ErrUnknownFilterField) {
		t.Fatalf("expected ErrUnknownFilterField, got %v", err)
	}
}

func TestFilterApplyAlwaysIncludesOwnershipClause(t *testing.T) {
	db := newRepositoryDBForTest(t)
	cases := []FieldValues{
		nil,
		{"name": Some("alpha")},
		{"id": Some("p-1"), "action": Some(true), "name": Some("x")},
	}
	for _, values := range cases {
		f, err := BuildFilter(ProjectSchema, OwnerScope{OwnerID: "owner-7"}, values)
		if err != nil {
			t.Fatalf("build filter: %v", err)
		}
		stmt := f.Apply(db.Session(&gorm.Session{DryRun: true}).Model(&domain.Project{})).Find(&[]domain.Project{}).Statement
		sql := stmt.SQL.String()
		if !strings.Contains(sql, "projects.user_id = ?") {
			t.Fatalf("missing ownership clause in %q", sql)
		}
		if stmt.Vars[0] != "owner-7" {
			t.Fatalf("expected owner bound first, got %v", stmt.Vars)
		}
	}

	f, err := BuildFilter(TaskSchema, OwnerScope{OwnerID: "owner-7", ProjectID: "p-1"}, FieldValues{"title": Some("x")})
	if err != nil {
		t.Fatalf("build task filter: %v", err)
	}
	sql := f.Apply(db.Session(&gorm.Session{DryRun: true}).Model(&domain.Task{})).Find(&[]domain.Task{}).Statement.SQL.String()
	if !strings.Contains(sql, "tasks.project_id = ?") || !strings.Contains(sql, "SELECT id FROM projects WHERE user_id = ?") {
		t.Fatalf("missing task ownership clauses in %q", sql)
	}
}

func TestContainsMatchIsCaseInsensitiveAndEscapesWildcards(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewProjectRepository(db)
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	seedProject(t, repo, "u-1", "Alpha release", now)
	seedProject(t, repo, "u-1", "100% done", now.Add(time.Second))
	seedProject(t, repo, "u-1", "alphabet soup", now.Add(2*time.Second))
	seedProject(t, repo, "u-2", "ALPHA other tenant", now.Add(3*time.Second))

	f, _ := BuildFilter(ProjectSchema, OwnerScope{OwnerID: "u-1"}, FieldValues{"name": Some("ALPHA")})
	page, err := repo.List(context.Background(), f, DefaultListQuery())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 owned alpha projects, got %d", page.Total)
	}

	f, _ = BuildFilter(ProjectSchema, OwnerScope{OwnerID: "u-1"}, FieldValues{"name": Some("%")})
	page, err = repo.List(context.Background(), f, DefaultListQuery())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Items[0].Name != "100% done" {
		t.Fatalf("expected literal percent match only, got %+v", page.Items)
	}
}
