package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/project-tracker-backend/internal/health"
	"github.com/sandeepkv93/project-tracker-backend/internal/http/handler"
	"github.com/sandeepkv93/project-tracker-backend/internal/http/middleware"
	"github.com/sandeepkv93/project-tracker-backend/internal/http/response"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

// Route policies are declared here and passed to Guard at registration.
var (
	PolicyProjectList     = middleware.RoutePolicy{Name: "GET /api/v1/project", Permissions: []string{PermissionRead}, CacheNamespace: "project"}
	PolicyProjectGet      = middleware.RoutePolicy{Name: "GET /api/v1/project/{id}", Permissions: []string{PermissionRead}}
	PolicyProjectCreate   = middleware.RoutePolicy{Name: "POST /api/v1/project", Permissions: []string{PermissionWrite}}
	PolicyProjectComplete = middleware.RoutePolicy{Name: "PUT /api/v1/project/{id}", Permissions: []string{PermissionWrite}}
	PolicyProjectDelete   = middleware.RoutePolicy{Name: "DELETE /api/v1/project/{id}", Permissions: []string{PermissionWrite}}

	PolicyTaskList     = middleware.RoutePolicy{Name: "GET /api/v1/project/{id}/task", Permissions: []string{PermissionRead}, CacheNamespace: "task"}
	PolicyTaskGet      = middleware.RoutePolicy{Name: "GET /api/v1/project/{id}/task/{task_id}", Permissions: []string{PermissionRead}}
	PolicyTaskCreate   = middleware.RoutePolicy{Name: "POST /api/v1/project/{id}/task", Permissions: []string{PermissionWrite}}
	PolicyTaskComplete = middleware.RoutePolicy{Name: "PUT /api/v1/project/{id}/task/{task_id}", Permissions: []string{PermissionWrite}}
	PolicyTaskDelete   = middleware.RoutePolicy{Name: "DELETE /api/v1/project/{id}/task/{task_id}", Permissions: []string{PermissionWrite}}
)

// Policies lists every guarded route.
func Policies() []middleware.RoutePolicy {
	return []middleware.RoutePolicy{
		PolicyProjectList, PolicyProjectGet, PolicyProjectCreate, PolicyProjectComplete, PolicyProjectDelete,
		PolicyTaskList, PolicyTaskGet, PolicyTaskCreate, PolicyTaskComplete, PolicyTaskDelete,
	}
}

type AuthRateLimiterFunc func(http.Handler) http.Handler

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	ProjectHandler *handler.ProjectHandler
	TaskHandler    *handler.TaskHandler
	Verifier       middleware.IdentityVerifier
	Permissions    service.PermissionChecker
	ListCache      *service.ResponseCache
	CORSOrigins    []string
	// AuthRateLimiter guards register and login. Nil falls back to an
	// in-process limiter of AuthRateLimitRPM per client IP.
	AuthRateLimiter  AuthRateLimiterFunc
	AuthRateLimitRPM int
	Readiness        *health.ProbeRunner
	EnableOTelHTTP   bool
}

// Guard builds the permission check for policy, followed by the list cache
// when the policy names a cache namespace. Authentication runs before it.
func Guard(checker service.PermissionChecker, cache *service.ResponseCache, policy middleware.RoutePolicy) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{middleware.RequirePermissions(checker, policy)}
	if policy.CacheNamespace != "" && cache != nil {
		chain = append(chain, middleware.ListCache(cache, policy.CacheNamespace))
	}
	return chain
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		rpm := dep.AuthRateLimitRPM
		if rpm <= 0 {
			rpm = 30
		}
		authLimiter = middleware.NewRateLimiter(rpm, time.Minute).Middleware()
	}
	guard := func(policy middleware.RoutePolicy) []func(http.Handler) http.Handler {
		return Guard(dep.Permissions, dep.ListCache, policy)
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter)
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/login", dep.AuthHandler.Login)
		})

		r.Route("/project", func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(dep.Verifier))
			r.With(guard(PolicyProjectList)...).Get("/", dep.ProjectHandler.List)
			r.With(guard(PolicyProjectCreate)...).Post("/", dep.ProjectHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.With(guard(PolicyProjectGet)...).Get("/", dep.ProjectHandler.Get)
				r.With(guard(PolicyProjectComplete)...).Put("/", dep.ProjectHandler.Complete)
				r.With(guard(PolicyProjectDelete)...).Delete("/", dep.ProjectHandler.Delete)

				r.Route("/task", func(r chi.Router) {
					r.With(guard(PolicyTaskList)...).Get("/", dep.TaskHandler.List)
					r.With(guard(PolicyTaskCreate)...).Post("/", dep.TaskHandler.Create)
					r.With(guard(PolicyTaskGet)...).Get("/{task_id}", dep.TaskHandler.Get)
					r.With(guard(PolicyTaskComplete)...).Put("/{task_id}", dep.TaskHandler.Complete)
					r.With(guard(PolicyTaskDelete)...).Delete("/{task_id}", dep.TaskHandler.Delete)
				})
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
