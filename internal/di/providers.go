package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/project-tracker-backend/internal/app"
	"github.com/sandeepkv93/project-tracker-backend/internal/config"
	"github.com/sandeepkv93/project-tracker-backend/internal/database"
	"github.com/sandeepkv93/project-tracker-backend/internal/health"
	"github.com/sandeepkv93/project-tracker-backend/internal/http/handler"
	"github.com/sandeepkv93/project-tracker-backend/internal/http/middleware"
	"github.com/sandeepkv93/project-tracker-backend/internal/http/router"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewPermissionRepository,
	repository.NewProjectRepository,
	repository.NewTaskRepository,
)

var SecuritySet = wire.NewSet(provideJWTManager)

var ServiceSet = wire.NewSet(
	provideTaskQueue,
	provideNotifier,
	provideListCacheStore,
	provideResponseCache,
	provideLoginGuard,
	provideAuthService,
	service.NewPermissionResolver,
	service.NewProjectService,
	service.NewTaskService,
	wire.Bind(new(service.Notifier), new(*service.AsyncNotifier)),
	wire.Bind(new(service.PermissionChecker), new(*service.PermissionResolver)),
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.ProjectServiceInterface), new(*service.ProjectService)),
	wire.Bind(new(service.TaskServiceInterface), new(*service.TaskService)),
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewProjectHandler,
	handler.NewTaskHandler,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

// MigrationRunner applies the schema and the default permission graph.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() (*database.RBACSyncReport, error) {
	if err := database.Migrate(m.db); err != nil {
		return nil, err
	}
	return database.SeedSync(m.db)
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.Seed(db); err != nil {
		return nil, err
	}
	return db, nil
}

// provideRedisClient returns nil unless a configured backend needs redis.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.UsesRedis() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
}

func provideTaskQueue(cfg *config.Config, redisClient redis.UniversalClient, logger *slog.Logger) service.TaskQueue {
	if cfg.NotifyQueueBackend == "redis" && redisClient != nil {
		return service.NewRedisTaskQueue(redisClient, cfg.NotifyQueueKey)
	}
	return service.NewLogTaskQueue(logger)
}

func provideNotifier(cfg *config.Config, queue service.TaskQueue, logger *slog.Logger) *service.AsyncNotifier {
	return service.NewAsyncNotifier(queue, logger, cfg.NotifyTimeout).WithRetry(cfg.NotifyRetries, cfg.NotifyRetryBase)
}

func provideListCacheStore(cfg *config.Config, redisClient redis.UniversalClient) service.ListCacheStore {
	if !cfg.ListCacheEnabled {
		return service.NewNoopListCacheStore()
	}
	switch cfg.ListCacheBackend {
	case "redis":
		if redisClient != nil {
			return service.NewRedisListCacheStore(redisClient, cfg.ListCachePrefix)
		}
	case "sturdyc":
		return service.NewSturdyListCacheStore(cfg.ListCacheCapacity, cfg.ListCacheTTL)
	}
	return service.NewInMemoryListCacheStore()
}

func provideResponseCache(cfg *config.Config, store service.ListCacheStore, logger *slog.Logger) *service.ResponseCache {
	return service.NewResponseCache(store, cfg.ListCacheTTL, logger)
}

func provideLoginGuard(cfg *config.Config, redisClient redis.UniversalClient) service.LoginGuard {
	if !cfg.LoginGuardEnabled {
		return service.NewNoopLoginGuard()
	}
	policy := service.LoginGuardPolicy{
		FreeAttempts: cfg.LoginGuardFreeAttempts,
		BaseDelay:    cfg.LoginGuardBaseDelay,
		Multiplier:   2,
		MaxDelay:     cfg.LoginGuardMaxDelay,
		ResetWindow:  cfg.LoginGuardResetWindow,
	}
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		return service.NewRedisLoginGuard(redisClient, cfg.RateLimitRedisPrefix+":login", policy)
	}
	return service.NewInMemoryLoginGuard(policy)
}

func provideAuthService(cfg *config.Config, users repository.UserRepository, jwt *security.JWTManager, notifier service.Notifier, guard service.LoginGuard) *service.AuthService {
	return service.NewAuthService(users, jwt, notifier, cfg.JWTAccessTTL).WithLoginGuard(guard)
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":auth")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute).Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	projectHandler *handler.ProjectHandler,
	taskHandler *handler.TaskHandler,
	jwt *security.JWTManager,
	permissions service.PermissionChecker,
	listCache *service.ResponseCache,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:      authHandler,
		ProjectHandler:   projectHandler,
		TaskHandler:      taskHandler,
		Verifier:         jwt,
		Permissions:      permissions,
		ListCache:        listCache,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimiter:  authRateLimiter,
		AuthRateLimitRPM: cfg.AuthRateLimitPerMin,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// redisUses names the features configured to run on redis.
func redisUses(cfg *config.Config) []string {
	var uses []string
	if cfg.ListCacheEnabled && cfg.ListCacheBackend == "redis" {
		uses = append(uses, "list_cache")
	}
	if cfg.NotifyQueueBackend == "redis" {
		uses = append(uses, "notify_queue")
	}
	if cfg.RateLimitRedisEnabled {
		uses = append(uses, "auth_rate_limit")
		if cfg.LoginGuardEnabled {
			uses = append(uses, "login_guard")
		}
	}
	return uses
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db, database.TableNames(db)...)}
	if redisClient != nil {
		checkers = append(checkers, health.NewRedisChecker(redisClient, redisUses(cfg)...))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	notifier *service.AsyncNotifier,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, notifier)
}
