package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ResolutionsTotal          metric.Int64Counter
	ResolutionFailuresTotal   metric.Int64Counter
	ResolutionDurationSeconds metric.Float64Histogram
	CollaboratorRequestsTotal metric.Int64Counter
	EmbeddingCallsTotal       metric.Int64Counter
	EmbeddingErrorsTotal      metric.Int64Counter
	IndexBuildDurationSeconds metric.Float64Histogram
	IndexQueriesTotal         metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("AlternativePOIs")
		var err error
		m := &AppMetrics{}

		m.ResolutionsTotal, err = meter.Int64Counter(
			"poi_resolutions_total",
			metric.WithDescription("Total number of POI name resolutions completed"),
			metric.WithUnit("{resolution}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create poi_resolutions_total: %v", err)
		}

		m.ResolutionFailuresTotal, err = meter.Int64Counter(
			"poi_resolution_failures_total",
			metric.WithDescription("Total number of POI resolutions that returned no record"),
			metric.WithUnit("{resolution}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create poi_resolution_failures_total: %v", err)
		}

		m.ResolutionDurationSeconds, err = meter.Float64Histogram(
			"poi_resolution_duration_seconds",
			metric.WithDescription("Duration of single POI resolutions in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create poi_resolution_duration_seconds: %v", err)
		}

		m.CollaboratorRequestsTotal, err = meter.Int64Counter(
			"collaborator_requests_total",
			metric.WithDescription("Total number of outbound requests to geodata collaborators"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create collaborator_requests_total: %v", err)
		}

		m.EmbeddingCallsTotal, err = meter.Int64Counter(
			"embedding_calls_total",
			metric.WithDescription("Total number of embedding collaborator calls"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create embedding_calls_total: %v", err)
		}

		m.EmbeddingErrorsTotal, err = meter.Int64Counter(
			"embedding_errors_total",
			metric.WithDescription("Total number of failed embedding collaborator calls"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create embedding_errors_total: %v", err)
		}

		m.IndexBuildDurationSeconds, err = meter.Float64Histogram(
			"index_build_duration_seconds",
			metric.WithDescription("Duration of similarity index builds in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create index_build_duration_seconds: %v", err)
		}

		m.IndexQueriesTotal, err = meter.Int64Counter(
			"index_queries_total",
			metric.WithDescription("Total number of similarity index queries"),
			metric.WithUnit("{query}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create index_queries_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the initialized instruments. InitAppMetrics must run first;
// Get falls back to initializing with the global meter so tests work without
// explicit bootstrap.
func Get() *AppMetrics {
	if appMetrics == nil {
		InitAppMetrics()
	}
	return appMetrics
}
