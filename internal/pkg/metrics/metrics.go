package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all stock-service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	MovementsRecorded *prometheus.CounterVec
	OrdersIngested    *prometheus.CounterVec
	OrdersQuarantined prometheus.Counter
	QueueDepth        prometheus.Gauge
	SyncPushes        *prometheus.CounterVec
	SyncPushDuration  *prometheus.HistogramVec

	// Outbox metrics
	OutboxPending   prometheus.Gauge
	OutboxPublished *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "ambar",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	m.MovementsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "stock_movements_total",
			Help:      "Total number of stock movements recorded",
		},
		[]string{"type", "direction"},
	)

	m.OrdersIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "orders_ingested_total",
			Help:      "Total number of marketplace orders ingested",
		},
		[]string{"store", "outcome"},
	)

	m.OrdersQuarantined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "orders_quarantined_total",
			Help:      "Total number of orders diverted to quarantine",
		},
	)

	m.QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "stock_update_queue_depth",
			Help:      "Number of pending stock update queue entries",
		},
	)

	m.SyncPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "stock_sync_pushes_total",
			Help:      "Total number of marketplace stock push batches by outcome",
		},
		[]string{"provider", "outcome"},
	)

	m.SyncPushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "stock_sync_push_duration_seconds",
			Help:      "Marketplace stock push duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	m.OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "outbox_pending_events",
			Help:      "Number of unpublished outbox events",
		},
	)

	m.OutboxPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbox_published_total",
			Help:      "Total number of outbox events published by outcome",
		},
		[]string{"eventType", "outcome"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.MovementsRecorded,
		m.OrdersIngested,
		m.OrdersQuarantined,
		m.QueueDepth,
		m.SyncPushes,
		m.SyncPushDuration,
		m.OutboxPending,
		m.OutboxPublished,
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordMovement records a stock movement
func (m *Metrics) RecordMovement(movementType, direction string) {
	m.MovementsRecorded.WithLabelValues(movementType, direction).Inc()
}

// RecordIngestion records an order ingestion outcome
func (m *Metrics) RecordIngestion(storeID, outcome string) {
	m.OrdersIngested.WithLabelValues(storeID, outcome).Inc()
}

// RecordSyncPush records a marketplace push outcome
func (m *Metrics) RecordSyncPush(provider, outcome string, duration time.Duration) {
	m.SyncPushes.WithLabelValues(provider, outcome).Inc()
	m.SyncPushDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordOutboxPublish records an outbox publish attempt
func (m *Metrics) RecordOutboxPublish(eventType string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.OutboxPublished.WithLabelValues(eventType, outcome).Inc()
}

// SetOutboxPending sets the pending outbox event count
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// SetQueueDepth sets the pending stock update queue depth
func (m *Metrics) SetQueueDepth(count int) {
	m.QueueDepth.Set(float64(count))
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
