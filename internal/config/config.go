package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseDriver string
	DatabaseURL    string

	JWTIssuer          string
	JWTAudience        string
	JWTSecret          string
	JWTAccessTTL       time.Duration
	CORSAllowedOrigins []string

	AuthRateLimitPerMin   int
	RateLimitRedisEnabled bool
	RateLimitRedisPrefix  string

	LoginGuardEnabled      bool
	LoginGuardFreeAttempts int
	LoginGuardBaseDelay    time.Duration
	LoginGuardMaxDelay     time.Duration
	LoginGuardResetWindow  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ListCacheEnabled  bool
	ListCacheBackend  string
	ListCacheTTL      time.Duration
	ListCachePrefix   string
	ListCacheCapacity int

	NotifyQueueBackend string
	NotifyQueueKey     string
	NotifyTimeout      time.Duration
	NotifyRetries      int
	NotifyRetryBase    time.Duration

	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Env:                    env,
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		DatabaseDriver:         strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		JWTIssuer:              getEnv("JWT_ISSUER", "project-tracker-backend"),
		JWTAudience:            getEnv("JWT_AUDIENCE", "project-tracker-api"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins:     splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRateLimitPerMin:    getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		RateLimitRedisEnabled:  getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitRedisPrefix:   getEnv("RATE_LIMIT_REDIS_PREFIX", "tracker:rl"),
		LoginGuardEnabled:      getEnvBool("LOGIN_GUARD_ENABLED", true),
		LoginGuardFreeAttempts: getEnvInt("LOGIN_GUARD_FREE_ATTEMPTS", 5),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		ListCacheEnabled:       getEnvBool("LIST_CACHE_ENABLED", true),
		ListCacheBackend:       strings.ToLower(getEnv("LIST_CACHE_BACKEND", "memory")),
		ListCachePrefix:        getEnv("LIST_CACHE_PREFIX", "tracker:list"),
		ListCacheCapacity:      getEnvInt("LIST_CACHE_CAPACITY", 10000),
		NotifyQueueBackend:     strings.ToLower(getEnv("NOTIFY_QUEUE_BACKEND", "log")),
		NotifyQueueKey:         getEnv("NOTIFY_QUEUE_KEY", "tracker:tasks"),
		NotifyRetries:          getEnvInt("NOTIFY_RETRIES", 2),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "project-tracker-backend"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"JWT_ACCESS_TTL", "30m", &cfg.JWTAccessTTL},
		{"LIST_CACHE_TTL", "60s", &cfg.ListCacheTTL},
		{"NOTIFY_TIMEOUT", "5s", &cfg.NotifyTimeout},
		{"NOTIFY_RETRY_BASE", "100ms", &cfg.NotifyRetryBase},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "2s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
		{"LOGIN_GUARD_BASE_DELAY", "2s", &cfg.LoginGuardBaseDelay},
		{"LOGIN_GUARD_MAX_DELAY", "5m", &cfg.LoginGuardMaxDelay},
		{"LOGIN_GUARD_RESET_WINDOW", "30m", &cfg.LoginGuardResetWindow},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, "DATABASE_DRIVER must be one of postgres, sqlite")
	}
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > 24*time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 24h")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.LoginGuardEnabled {
		if c.LoginGuardFreeAttempts < 0 {
			errs = append(errs, "LOGIN_GUARD_FREE_ATTEMPTS must be >= 0")
		}
		if c.LoginGuardBaseDelay <= 0 || c.LoginGuardMaxDelay < c.LoginGuardBaseDelay {
			errs = append(errs, "LOGIN_GUARD_BASE_DELAY must be > 0 and <= LOGIN_GUARD_MAX_DELAY")
		}
		if c.LoginGuardResetWindow <= 0 {
			errs = append(errs, "LOGIN_GUARD_RESET_WINDOW must be > 0")
		}
	}
	if c.ListCacheEnabled {
		switch c.ListCacheBackend {
		case "memory", "sturdyc", "redis":
		default:
			errs = append(errs, "LIST_CACHE_BACKEND must be one of memory, sturdyc, redis")
		}
		if c.ListCacheTTL <= 0 {
			errs = append(errs, "LIST_CACHE_TTL must be > 0")
		}
		if c.ListCacheBackend == "sturdyc" && c.ListCacheCapacity <= 0 {
			errs = append(errs, "LIST_CACHE_CAPACITY must be > 0 for the sturdyc backend")
		}
	}
	switch c.NotifyQueueBackend {
	case "log", "redis":
	default:
		errs = append(errs, "NOTIFY_QUEUE_BACKEND must be one of log, redis")
	}
	if c.NotifyQueueBackend == "redis" && strings.TrimSpace(c.NotifyQueueKey) == "" {
		errs = append(errs, "NOTIFY_QUEUE_KEY is required when NOTIFY_QUEUE_BACKEND=redis")
	}
	if c.NotifyTimeout <= 0 {
		errs = append(errs, "NOTIFY_TIMEOUT must be > 0")
	}
	if c.NotifyRetries < 0 {
		errs = append(errs, "NOTIFY_RETRIES must be >= 0")
	}
	if c.NotifyRetries > 0 && c.NotifyRetryBase <= 0 {
		errs = append(errs, "NOTIFY_RETRY_BASE must be > 0 when NOTIFY_RETRIES > 0")
	}
	if c.UsesRedis() && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, "REDIS_ADDR is required when a redis backend is enabled")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if c.ShutdownObservabilityTimeout <= 0 || c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_OBSERVABILITY_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}

	if isProdLikeEnv(c.Env) {
		if c.DatabaseDriver != "postgres" {
			errs = append(errs, "DATABASE_DRIVER must be postgres in production")
		}
		if c.ListCacheEnabled && c.ListCacheBackend != "redis" {
			errs = append(errs, "LIST_CACHE_BACKEND must be redis in production")
		}
		if c.NotifyQueueBackend != "redis" {
			errs = append(errs, "NOTIFY_QUEUE_BACKEND must be redis in production")
		}
		if !c.RateLimitRedisEnabled {
			errs = append(errs, "RATE_LIMIT_REDIS_ENABLED must be true in production")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// UsesRedis reports whether any configured backend needs the shared redis client.
func (c *Config) UsesRedis() bool {
	return (c.ListCacheEnabled && c.ListCacheBackend == "redis") ||
		c.NotifyQueueBackend == "redis" ||
		c.RateLimitRedisEnabled
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
