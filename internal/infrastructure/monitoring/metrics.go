package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Scheduler metrics
	QueueDepth    *prometheus.GaugeVec
	Admissions    *prometheus.CounterVec
	YieldRequests prometheus.Counter

	// Activity metrics
	ActivitiesCreated prometheus.Counter
	ActivitiesLive    prometheus.Gauge

	// Provider metrics
	ProviderBroadcasts *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

// Snapshot holds headline values for the JSON introspection API.
type Snapshot struct {
	TotalRequests   int64 `json:"total_requests"`
	TotalErrors     int64 `json:"total_errors"`
	LiveActivities  int64 `json:"live_activities"`
	WSSubscribers   int64 `json:"ws_subscribers"`
	TotalAdmissions int64 `json:"total_admissions"`
}

// NewMetrics creates a new metrics collector on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activityd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activityd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "activityd_run_queue_depth",
				Help: "Number of activities on each run queue",
			},
			[]string{"queue"},
		),
		Admissions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activityd_admissions_total",
				Help: "Activities admitted to a running queue",
			},
			[]string{"queue"},
		),
		YieldRequests: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "activityd_yield_requests_total",
				Help: "Cooperative yield requests issued by the scheduler",
			},
		),
		ActivitiesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "activityd_activities_created_total",
				Help: "Activities created since start",
			},
		),
		ActivitiesLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "activityd_activities_live",
				Help: "Currently registered activities",
			},
		),
		ProviderBroadcasts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activityd_provider_broadcasts_total",
				Help: "Requirement transitions broadcast by providers",
			},
			[]string{"provider", "kind"},
		),
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "activityd_ws_connections",
				Help: "Open subscriber WebSocket connections",
			},
		),
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "activityd_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RecordRequest tracks an HTTP request.
func (m *Metrics) RecordRequest(method, path, status string, duration time.Duration, isError bool) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if isError {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordAdmission tracks an admission to a running queue.
func (m *Metrics) RecordAdmission(queue string) {
	m.Admissions.WithLabelValues(queue).Inc()

	m.mu.Lock()
	m.snapshot.TotalAdmissions++
	m.mu.Unlock()
}

// RecordQueueDepth updates the depth gauge for a queue.
func (m *Metrics) RecordQueueDepth(queue string, depth int) {
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordBroadcast tracks a provider broadcast.
func (m *Metrics) RecordBroadcast(provider, kind string) {
	m.ProviderBroadcasts.WithLabelValues(provider, kind).Inc()
}

// RecordActivityCreated tracks a new activity.
func (m *Metrics) RecordActivityCreated(live int) {
	m.ActivitiesCreated.Inc()
	m.SetLiveActivities(live)
}

// SetLiveActivities updates the live-activities gauge.
func (m *Metrics) SetLiveActivities(live int) {
	m.ActivitiesLive.Set(float64(live))

	m.mu.Lock()
	m.snapshot.LiveActivities = int64(live)
	m.mu.Unlock()
}

// WSConnected tracks a subscriber connection opening.
func (m *Metrics) WSConnected() {
	m.WSConnections.Inc()

	m.mu.Lock()
	m.snapshot.WSSubscribers++
	m.mu.Unlock()
}

// WSDisconnected tracks a subscriber connection closing.
func (m *Metrics) WSDisconnected() {
	m.WSConnections.Dec()

	m.mu.Lock()
	m.snapshot.WSSubscribers--
	m.mu.Unlock()
}

// GetSnapshot returns headline values with uptime refreshed.
func (m *Metrics) GetSnapshot() Snapshot {
	m.Uptime.Set(time.Since(m.startTime).Seconds())

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
