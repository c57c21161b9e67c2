package migrate

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sandeepkv93/project-tracker-backend/internal/database"
	"github.com/sandeepkv93/project-tracker-backend/internal/tools/common"
)

// sharedMemoryDB returns an opener for one named in-memory database plus a
// handle that keeps it alive across the connections each command closes.
func sharedMemoryDB(t *testing.T) (openFunc, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:migrate_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	open := func(string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), &gorm.Config{}) }
	keeper, err := open("")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := keeper.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return open, keeper
}

func execute(t *testing.T, open openFunc, args ...string) error {
	t.Helper()
	cmd := newRootCommand(open)
	cmd.SetArgs(append(args, "--ci", "--env-file", ""))
	return cmd.Execute()
}

func TestUpMigratesAndSeeds(t *testing.T) {
	open, keeper := sharedMemoryDB(t)

	if pending := database.PendingModels(keeper); len(pending) == 0 {
		t.Fatal("expected pending tables before up")
	}
	if err := execute(t, open, "up"); err != nil {
		t.Fatalf("up: %v", err)
	}
	if pending := database.PendingModels(keeper); len(pending) != 0 {
		t.Fatalf("expected no pending tables, got %v", pending)
	}
	plan, err := database.PlanSeed(keeper)
	if err != nil {
		t.Fatalf("plan seed: %v", err)
	}
	if !plan.Noop {
		t.Fatalf("expected permissions seeded, got %+v", plan)
	}

	if err := execute(t, open, "up"); err != nil {
		t.Fatalf("second up: %v", err)
	}
}

func TestStatusAndPlanDoNotMutate(t *testing.T) {
	open, keeper := sharedMemoryDB(t)

	if err := execute(t, open, "status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if err := execute(t, open, "plan"); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if pending := database.PendingModels(keeper); len(pending) != len(database.Models()) {
		t.Fatalf("expected plan to leave schema untouched, pending=%v", pending)
	}
}

func TestOpenFailureIsReportedAsActionFailure(t *testing.T) {
	open := func(string) (*gorm.DB, error) { return nil, errors.New("dial refused") }
	err := execute(t, open, "status")
	if !errors.Is(err, common.ErrActionFailed) {
		t.Fatalf("expected ErrActionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "dial refused") {
		t.Fatalf("expected cause in error, got %v", err)
	}
}
