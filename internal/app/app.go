package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/project-tracker-backend/internal/config"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Notifier      *service.AsyncNotifier
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, db *gorm.DB, redisClient redis.UniversalClient, notifier *service.AsyncNotifier) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Notifier:      notifier,
	}
}

// Serve blocks until the server stops. A graceful Shutdown is not an error.
func (a *App) Serve() error {
	a.Logger.Info("server starting", "addr", a.Server.Addr)
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP first, then pending notifications, then flushes
// telemetry before closing redis and the database. Every step runs even if
// an earlier one fails; the errors are joined.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	httpCtx, cancel := context.WithTimeout(ctx, a.Config.ShutdownHTTPDrainTimeout)
	if err := a.Server.Shutdown(httpCtx); err != nil {
		a.Logger.Error("failed to shutdown http server", "error", err)
		errs = append(errs, err)
	}
	cancel()

	if a.Notifier != nil {
		if err := a.Notifier.Wait(ctx); err != nil {
			a.Logger.Warn("notifications still pending at shutdown", "error", err)
			errs = append(errs, err)
		}
	}

	if a.Observability != nil {
		obsCtx, cancel := context.WithTimeout(ctx, a.Config.ShutdownObservabilityTimeout)
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
			errs = append(errs, err)
		}
		cancel()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
