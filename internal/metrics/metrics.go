package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grocery_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grocery_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	projectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grocery_projection_duration_seconds",
			Help:    "Time spent computing projections over a record snapshot",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"operation"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grocery_cache_lookups_total",
			Help: "Dashboard cache lookups by result",
		},
		[]string{"result"},
	)

	skippedRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grocery_skipped_records",
			Help: "Records left out of the last projection because of malformed data",
		},
	)

	autoCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grocery_consumption_auto_completed_total",
			Help: "Consumption records closed by the depletion sweep",
		},
	)
)

func init() {
	registry.MustRegister(
		httpRequests,
		httpDuration,
		projectionDuration,
		cacheLookups,
		skippedRecords,
		autoCompleted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Registry() *prometheus.Registry {
	return registry
}

// Middleware counts and times every request by its route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		route := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// ObserveProjection records how long one projection operation took.
func ObserveProjection(operation string, start time.Time) {
	projectionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func CacheHit()  { cacheLookups.WithLabelValues("hit").Inc() }
func CacheMiss() { cacheLookups.WithLabelValues("miss").Inc() }

func SetSkippedRecords(n int) {
	skippedRecords.Set(float64(n))
}

func AddAutoCompleted(n int) {
	autoCompleted.Add(float64(n))
}
