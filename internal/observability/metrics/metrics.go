package metrics

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "voyage"

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	TripsGenerated        metric.Int64Counter
	QuotaRejections       metric.Int64Counter
	GenerationFailures    metric.Int64Counter
	GenerationDuration    metric.Float64Histogram
	LLMTokens             metric.Int64Counter
	UsageIncrementErrors  metric.Int64Counter
	UsageCheckFailOpen    metric.Int64Counter
	TripsLinked           metric.Int64Counter
	TripsDeleted          metric.Int64Counter
	AuthRequestsTotal     metric.Int64Counter
	DBQueryErrorsTotal    metric.Int64Counter
	CacheLookups          metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global MeterProvider. It
// runs once; call it after the provider is installed so the instruments export.
func InitAppMetrics(logger *zap.Logger) {
	once.Do(func() {
		appMetrics = build(otel.GetMeterProvider().Meter(meterName), logger)
	})
}

// Get returns the instruments, creating them from the current global provider
// if InitAppMetrics was never called (tests, CLI commands).
func Get() *AppMetrics {
	InitAppMetrics(zap.NewNop())
	return appMetrics
}

func build(meter metric.Meter, logger *zap.Logger) *AppMetrics {
	m := &AppMetrics{}
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			logger.Error("Failed to create counter", zap.String("name", name), zap.Error(err))
		}
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		if err != nil {
			logger.Error("Failed to create histogram", zap.String("name", name), zap.Error(err))
		}
		return h
	}

	m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests completed", "{request}")
	m.HTTPRequestDuration = histogram("http_request_duration_seconds", "Duration of HTTP requests in seconds")

	m.TripsGenerated = counter("trips_generated_total", "Trips generated and stored, by caller kind", "{trip}")
	m.QuotaRejections = counter("anonymous_quota_rejections_total", "Generation requests refused by the anonymous limit", "{request}")
	m.GenerationFailures = counter("itinerary_generation_failures_total", "Failed itinerary generations, by kind", "{failure}")
	m.GenerationDuration = histogram("itinerary_generation_duration_seconds", "Latency of the text generation call")
	m.LLMTokens = counter("llm_tokens_total", "Tokens reported by the text generation provider", "{token}")
	m.UsageIncrementErrors = counter("usage_increment_errors_total", "Usage increments lost after a trip was stored", "{error}")
	m.UsageCheckFailOpen = counter("usage_check_fail_open_total", "Limit checks admitted because the ledger was unreachable", "{request}")
	m.TripsLinked = counter("trips_linked_total", "Anonymous trips attached to an account", "{trip}")
	m.TripsDeleted = counter("trips_deleted_total", "Trips deleted, by requester role", "{trip}")
	m.AuthRequestsTotal = counter("auth_requests_total", "Authentication requests, by action and outcome", "{request}")
	m.DBQueryErrorsTotal = counter("db_query_errors_total", "Total number of database query errors", "{error}")
	m.CacheLookups = counter("cache_lookups_total", "In-process cache hits and misses", "{lookup}")

	logger.Info("Application metrics instruments initialized")
	return m
}
