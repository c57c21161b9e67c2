package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

const meterName = "project-tracker-backend"

type AppMetrics struct {
	authLoginCounter             metric.Int64Counter
	authRegisterCounter          metric.Int64Counter
	accessTokenValidationCounter metric.Int64Counter
	permissionDecisionCounter    metric.Int64Counter
	permissionLookupDuration     metric.Float64Histogram
	listCacheEvents              metric.Int64Counter
	listReqDuration              metric.Float64Histogram
	listPageSize                 metric.Float64Histogram
	repositoryOpsCounter         metric.Int64Counter
	domainOperationCounter       metric.Int64Counter
	domainOperationDuration      metric.Float64Histogram
	notificationCounter          metric.Int64Counter
	rateLimitDecisionCounter     metric.Int64Counter
	healthCheckResultCounter     metric.Int64Counter
	healthCheckDuration          metric.Float64Histogram
	databaseStartupCounter       metric.Int64Counter
	databaseStartupDuration      metric.Float64Histogram
	toolCommandRuns              metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	latencyBuckets := sdkmetric.Stream{
		Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
			Boundaries: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(
			sdkmetric.NewView(sdkmetric.Instrument{Name: "list.request.duration"}, latencyBuckets),
			sdkmetric.NewView(sdkmetric.Instrument{Name: "domain.operation.duration"}, latencyBuckets),
		),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	m := &AppMetrics{}
	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"auth.login.attempts", &m.authLoginCounter},
		{"auth.register.attempts", &m.authRegisterCounter},
		{"auth.access_token.validation.events", &m.accessTokenValidationCounter},
		{"auth.permission.decisions", &m.permissionDecisionCounter},
		{"list.cache.events", &m.listCacheEvents},
		{"repository.operations", &m.repositoryOpsCounter},
		{"domain.operation.events", &m.domainOperationCounter},
		{"notification.enqueue.events", &m.notificationCounter},
		{"http.rate_limit.decisions", &m.rateLimitDecisionCounter},
		{"health.check.results", &m.healthCheckResultCounter},
		{"database.startup.events", &m.databaseStartupCounter},
		{"tool.command.runs", &m.toolCommandRuns},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []struct {
		name string
		unit string
		desc string
		dst  *metric.Float64Histogram
	}{
		{"auth.permission.lookup.duration", "s", "Duration of user to permission graph lookups in seconds", &m.permissionLookupDuration},
		{"list.request.duration", "s", "Duration of project and task list requests in seconds", &m.listReqDuration},
		{"list.page_size", "", "Requested per_page for list endpoints", &m.listPageSize},
		{"domain.operation.duration", "s", "Duration of project and task operations in seconds", &m.domainOperationDuration},
		{"health.check.duration", "s", "Duration of health dependency checks in seconds", &m.healthCheckDuration},
		{"database.startup.duration", "s", "Duration of database startup phases in seconds", &m.databaseStartupDuration},
	}
	for _, h := range histograms {
		opts := []metric.Float64HistogramOption{metric.WithDescription(h.desc)}
		if h.unit != "" {
			opts = append(opts, metric.WithUnit(h.unit))
		}
		hist, err := meter.Float64Histogram(h.name, opts...)
		if err != nil {
			return nil, fmt.Errorf("create histogram %s: %w", h.name, err)
		}
		*h.dst = hist
	}
	return m, nil
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthRegister(ctx context.Context, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authRegisterCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAccessTokenValidation(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.accessTokenValidationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordPermissionDecision counts allow, deny and error outcomes of route guards.
func RecordPermissionDecision(ctx context.Context, route, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.permissionDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("outcome", outcome),
	))
}

func RecordPermissionLookupDuration(ctx context.Context, outcome string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.permissionLookupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func RecordListCacheEvent(ctx context.Context, namespace, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listCacheEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("outcome", outcome),
	))
}

func RecordListRequestDuration(ctx context.Context, resource, status string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("status", status),
	))
}

func RecordListPageSize(ctx context.Context, resource string, perPage int) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listPageSize.Record(ctx, float64(perPage), metric.WithAttributes(
		attribute.String("resource", resource),
	))
}

func RecordRepositoryOperation(ctx context.Context, repo, operation, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.repositoryOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repo),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordDomainOperation(ctx context.Context, resource, operation, outcome string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.domainOperationCounter.Add(ctx, 1, attrs)
	m.domainOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

func RecordNotificationEnqueue(ctx context.Context, task, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.notificationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("check", check),
	))
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.databaseStartupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.databaseStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("phase", phase),
	))
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}
