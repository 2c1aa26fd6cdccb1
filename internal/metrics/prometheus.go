package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "causelist_fetch_duration_seconds",
			Help:    "Cause list fetch duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"site"},
	)

	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causelist_fetch_total",
			Help: "Total number of cause list fetches by outcome",
		},
		[]string{"site", "status"},
	)

	FaultsContained = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causelist_faults_contained_total",
			Help: "Scraping faults that were contained instead of failing the request",
		},
		[]string{"site", "kind"},
	)

	RecordsProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causelist_records_total",
			Help: "Cause list records produced",
		},
		[]string{"site"},
	)

	SubmitAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "causelist_submit_attempts",
			Help:    "Form submissions per fetch",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	LookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causelist_lookup_total",
			Help: "Total metadata lookups",
		},
		[]string{"site", "level", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causelist_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causelist_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	ArtifactsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causelist_artifacts_generated_total",
			Help: "Generated PDF and zip files",
		},
		[]string{"kind"},
	)

	ArtifactsRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "causelist_artifacts_removed_total",
			Help: "Generated files deleted by the retention sweeper",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "causelist_browser_sessions_active",
			Help: "Browser sessions currently running",
		},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "causelist_circuit_breaker_state",
			Help: "Circuit breaker state per site (0 closed, 1 half-open, 2 open)",
		},
		[]string{"site"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(FetchDuration)
		prometheus.MustRegister(FetchTotal)
		prometheus.MustRegister(FaultsContained)
		prometheus.MustRegister(RecordsProduced)
		prometheus.MustRegister(SubmitAttempts)
		prometheus.MustRegister(LookupTotal)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(ArtifactsGenerated)
		prometheus.MustRegister(ArtifactsRemoved)
		prometheus.MustRegister(ActiveSessions)
		prometheus.MustRegister(BreakerState)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
