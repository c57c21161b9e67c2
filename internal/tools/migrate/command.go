package migrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/project-tracker-backend/internal/config"
	"github.com/sandeepkv93/project-tracker-backend/internal/database"
	"github.com/sandeepkv93/project-tracker-backend/internal/tools/common"
	"github.com/sandeepkv93/project-tracker-backend/internal/tools/ui"
)

type openFunc func(envFile string) (*gorm.DB, error)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
	open    openFunc
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(loadDB)
}

func newRootCommand(open openFunc) *cobra.Command {
	opts := &options{open: open}
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Database migration tooling",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newUpCommand(opts),
		newStatusCommand(opts),
		newPlanCommand(opts),
	)
	return cmd
}

func newUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations and default permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("up", withDB(opts, func(ctx context.Context, db *gorm.DB) ([]string, error) {
				if err := database.Migrate(db.WithContext(ctx)); err != nil {
					return nil, err
				}
				report, err := database.SeedSync(db.WithContext(ctx))
				if err != nil {
					return nil, err
				}
				return []string{
					"schema migration applied",
					fmt.Sprintf("permissions created: %d", report.CreatedPermissions),
					fmt.Sprintf("role grants bound: %d", report.BoundPermissions),
				}, nil
			}))
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report pending tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("status", withDB(opts, func(ctx context.Context, db *gorm.DB) ([]string, error) {
				sqlDB, err := db.DB()
				if err != nil {
					return nil, err
				}
				if err := sqlDB.PingContext(ctx); err != nil {
					return nil, fmt.Errorf("db ping: %w", err)
				}
				pending := database.PendingModels(db)
				if len(pending) == 0 {
					return []string{"database reachable", "schema up to date"}, nil
				}
				return []string{"database reachable", "pending tables: " + strings.Join(pending, ", ")}, nil
			}))
		},
	}
}

func newPlanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show what up would change (dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("plan", withDB(opts, func(ctx context.Context, db *gorm.DB) ([]string, error) {
				details := []string{}
				pending := database.PendingModels(db)
				for _, table := range pending {
					details = append(details, "would create table: "+table)
				}
				if len(pending) > 0 {
					details = append(details, "would seed default permissions after migration")
				} else {
					report, err := database.PlanSeed(db.WithContext(ctx))
					if err != nil {
						return nil, err
					}
					details = append(details,
						fmt.Sprintf("would create permissions: %d", report.CreatedPermissions),
						fmt.Sprintf("would bind role grants: %d", report.BoundPermissions),
					)
				}
				return append(details, "no mutation executed in plan mode"), nil
			}))
		},
	}
}

func (o *options) runner() common.Runner {
	return common.Runner{Tool: "migrate", CI: o.ci, Timeout: o.timeout, Interactive: ui.Run}
}

func withDB(opts *options, fn func(context.Context, *gorm.DB) ([]string, error)) common.Action {
	return func(ctx context.Context) ([]string, error) {
		db, err := opts.open(opts.envFile)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer func() { _ = sqlDB.Close() }()
		}
		return fn(ctx, db)
	}
}

func loadDB(envFile string) (*gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.Open(cfg)
}
