package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "variation"

// Collector - 서버 메트릭 (프로세스별 registry 사용)
type Collector struct {
	registry *prometheus.Registry

	runsTotal           *prometheus.CounterVec
	editRequestsTotal   *prometheus.CounterVec
	editRequestDuration prometheus.Histogram
	activeWorkspaces    prometheus.Gauge
	wsConnectionsTotal  prometheus.Counter
	uploadSizeBytes     prometheus.Histogram
}

// NewCollector registers all collectors on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Generation runs by final status",
			},
			[]string{"status"},
		),
		editRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edit_requests_total",
				Help:      "Per-prompt edit requests by outcome",
			},
			[]string{"outcome"},
		),
		editRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "edit_request_duration_seconds",
				Help:      "Latency of a single edit request",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		activeWorkspaces: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_workspaces",
				Help:      "Workspaces currently held in memory",
			},
		),
		wsConnectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_connections_total",
				Help:      "Websocket connections accepted",
			},
		),
		uploadSizeBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_size_bytes",
				Help:      "Accepted upload sizes",
				Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 9),
			},
		),
	}
}

// RecordRun - status: succeeded | failed
func (c *Collector) RecordRun(status string) {
	c.runsTotal.WithLabelValues(status).Inc()
}

// RecordEditRequest - outcome: success | refusal | empty | failed
func (c *Collector) RecordEditRequest(outcome string, elapsed time.Duration) {
	c.editRequestsTotal.WithLabelValues(outcome).Inc()
	c.editRequestDuration.Observe(elapsed.Seconds())
}

func (c *Collector) WorkspaceOpened() {
	c.activeWorkspaces.Inc()
}

func (c *Collector) WorkspaceClosed() {
	c.activeWorkspaces.Dec()
}

func (c *Collector) WebsocketConnected() {
	c.wsConnectionsTotal.Inc()
}

func (c *Collector) RecordUpload(size int) {
	c.uploadSizeBytes.Observe(float64(size))
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler - /metrics 엔드포인트
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
