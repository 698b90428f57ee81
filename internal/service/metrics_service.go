package service

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/campus-admin-api/internal/store"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

const metricsNamespace = "campus"

// MetricsService owns the Prometheus registry for HTTP, store and cache instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	cacheDuration   *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of served HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Served HTTP requests",
	}, []string{"method", "path", "status"})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "store_call_duration_seconds",
		Help:      "Duration of remote store calls",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "target"})

	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "store_call_errors_total",
		Help:      "Remote store calls that failed, by outcome",
	}, []string{"op", "target", "outcome"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "validation_rejections_total",
		Help:      "Mutations rejected locally before reaching the store",
	}, []string{"operation"})

	cacheDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "participants_cache",
		Name:      "operation_duration_seconds",
		Help:      "Latency of participants cache reads and writes",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{"op"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "participants_cache",
		Name:      "lookups_total",
		Help:      "Participants cache lookups by result",
	}, []string{"result"})

	registry.MustRegister(requestDuration, requestTotal, storeDuration, storeErrors, rejections,
		cacheDuration, cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		storeDuration:   storeDuration,
		storeErrors:     storeErrors,
		rejections:      rejections,
		cacheDuration:   cacheDuration,
		cacheLookups:    cacheLookups,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveStoreCall implements store.Observer.
func (m *MetricsService) ObserveStoreCall(op, target string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(op, target).Observe(duration.Seconds())
	if err == nil {
		return
	}
	outcome := "error"
	if errors.Is(err, store.ErrNotFound) {
		outcome = "not_found"
	}
	m.storeErrors.WithLabelValues(op, target, outcome).Inc()
}

// RecordRejection counts a mutation refused by local validation.
func (m *MetricsService) RecordRejection(operation string, err error) {
	if m == nil || !appErrors.IsValidation(err) {
		return
	}
	m.rejections.WithLabelValues(operation).Inc()
}

// RecordCacheOperation records one participants cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheDuration.WithLabelValues("get").Observe(duration.Seconds())
}

// ObserveCacheWrite records one participants cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheDuration.WithLabelValues("set").Observe(duration.Seconds())
}

var _ store.Observer = (*MetricsService)(nil)
