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

	conflictsDetected *prometheus.CounterVec
	conflictsResolved prometheus.Counter
	uploadsProcessed  *prometheus.CounterVec
	uploadRows        *prometheus.CounterVec
	referenceLookups  *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	conflictsDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flight_conflicts_detected_total",
		Help: "Scheduling conflicts detected, by type",
	}, []string{"type"})

	conflictsResolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flight_conflicts_resolved_total",
		Help: "Scheduling conflicts resolved by operators",
	})

	uploadsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_uploads_total",
		Help: "Processed upload batches, by final status",
	}, []string{"status"})

	uploadRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_upload_rows_total",
		Help: "Upload rows processed, by outcome",
	}, []string{"outcome"})

	referenceLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reference_lookups_total",
		Help: "Reference data lookups, by kind and origin",
	}, []string{"kind", "origin"})

	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flight_events_published_total",
		Help: "Domain events published to the flight stream",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, conflictsDetected, conflictsResolved,
		uploadsProcessed, uploadRows, referenceLookups, eventsPublished, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		conflictsDetected: conflictsDetected,
		conflictsResolved: conflictsResolved,
		uploadsProcessed:  uploadsProcessed,
		uploadRows:        uploadRows,
		referenceLookups:  referenceLookups,
		eventsPublished:   eventsPublished,
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

// RecordConflictDetected counts a detected conflict.
func (m *MetricsService) RecordConflictDetected(conflictType string) {
	if m == nil {
		return
	}
	m.conflictsDetected.WithLabelValues(conflictType).Inc()
}

// RecordConflictResolved counts a resolved conflict.
func (m *MetricsService) RecordConflictResolved() {
	if m == nil {
		return
	}
	m.conflictsResolved.Inc()
}

// RecordUploadOutcome counts a finished batch by status.
func (m *MetricsService) RecordUploadOutcome(status string) {
	if m == nil {
		return
	}
	m.uploadsProcessed.WithLabelValues(status).Inc()
}

// RecordUploadRow counts one processed row by outcome.
func (m *MetricsService) RecordUploadRow(outcome string) {
	if m == nil {
		return
	}
	m.uploadRows.WithLabelValues(outcome).Inc()
}

// RecordReferenceLookup counts a reference resolution by kind and origin.
func (m *MetricsService) RecordReferenceLookup(kind, origin string) {
	if m == nil {
		return
	}
	m.referenceLookups.WithLabelValues(kind, origin).Inc()
}

// RecordEventPublished counts a published domain event.
func (m *MetricsService) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}
