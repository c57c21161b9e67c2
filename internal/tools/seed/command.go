package seed

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
	cmd := &cobra.Command{Use: "seed", Short: "Permission seed tooling", SilenceUsage: true}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newAssignRoleCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Insert the default permissions and role grants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("apply", withDB(opts, func(ctx context.Context, db *gorm.DB) ([]string, error) {
				report, err := database.SeedSync(db.WithContext(ctx))
				if err != nil {
					return nil, err
				}
				if report.Noop {
					return []string{"default permissions already present"}, nil
				}
				return []string{
					fmt.Sprintf("permissions created: %d", report.CreatedPermissions),
					fmt.Sprintf("role grants bound: %d", report.BoundPermissions),
				}, nil
			}))
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what apply would insert",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("dry-run", withDB(opts, func(ctx context.Context, db *gorm.DB) ([]string, error) {
				report, err := database.PlanSeed(db.WithContext(ctx))
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("would create permissions: %d", report.CreatedPermissions),
					fmt.Sprintf("would bind role grants: %d", report.BoundPermissions),
				}, nil
			}))
		},
	}
}

func newAssignRoleCommand(opts *options) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "assign-role",
		Short: "Set the role of an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("assign-role", withDB(opts, func(ctx context.Context, db *gorm.DB) ([]string, error) {
				if err := database.AssignRole(db.WithContext(ctx), email, role); err != nil {
					if database.IsNotFound(err) {
						return nil, fmt.Errorf("no user with email %s", strings.TrimSpace(email))
					}
					return nil, err
				}
				return []string{fmt.Sprintf("assigned role %s to %s", strings.TrimSpace(role), strings.ToLower(strings.TrimSpace(email)))}, nil
			}))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user")
	cmd.Flags().StringVar(&role, "role", "", "role to assign")
	return cmd
}

func (o *options) runner() common.Runner {
	return common.Runner{Tool: "seed", CI: o.ci, Timeout: o.timeout, Interactive: ui.Run}
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
