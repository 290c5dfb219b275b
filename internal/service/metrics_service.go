package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	catalogHits     prometheus.Counter
	catalogMisses   prometheus.Counter
	allocations     prometheus.Counter
	finalized       *prometheus.CounterVec
	mailEnqueued    prometheus.Counter
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	catalogHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Catalog pages served from Redis",
	})

	catalogMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Catalog pages built from the database",
	})

	allocations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignments_confirmed_total",
		Help: "Topic assignments confirmed, manual and automatic",
	})

	finalized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "defenses_finalized_total",
		Help: "Defenses finalized, labeled by mention",
	}, []string{"mention"})

	mailEnqueued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_mails_enqueued_total",
		Help: "Notification emails handed to the mail queue",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, catalogHits, catalogMisses, allocations, finalized, mailEnqueued, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		catalogHits:     catalogHits,
		catalogMisses:   catalogMisses,
		allocations:     allocations,
		finalized:       finalized,
		mailEnqueued:    mailEnqueued,
	}
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCatalogLookup counts cache hits and misses on the public catalog.
func (m *MetricsService) RecordCatalogLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.catalogHits.Inc()
	} else {
		m.catalogMisses.Inc()
	}
}

// RecordAssignmentConfirmed counts one confirmed topic assignment.
func (m *MetricsService) RecordAssignmentConfirmed() {
	if m == nil {
		return
	}
	m.allocations.Inc()
}

// RecordDefenseFinalized counts one finalized defense by mention.
func (m *MetricsService) RecordDefenseFinalized(mention string) {
	if m == nil {
		return
	}
	m.finalized.WithLabelValues(mention).Inc()
}

// RecordMailEnqueued counts one notification handed to the mail queue.
func (m *MetricsService) RecordMailEnqueued() {
	if m == nil {
		return
	}
	m.mailEnqueued.Inc()
}
