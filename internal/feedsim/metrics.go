package feedsim

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// opMetrics are the producer's own operational metrics, exposed at /metrics.
type opMetrics struct {
	reg *prometheus.Registry

	framesTotal      prometheus.Counter
	connectedClients prometheus.Gauge
	snapshotReqs     *prometheus.CounterVec
	buildSeconds     prometheus.Histogram
}

func newOpMetrics() *opMetrics {
	m := &opMetrics{reg: prometheus.NewRegistry()}
	m.framesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "feedsim",
		Name:      "frames_total",
		Help:      "metrics_update frames broadcast to clients",
	})
	m.connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedsim",
		Name:      "connected_clients",
		Help:      "currently connected websocket clients",
	})
	m.snapshotReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedsim",
		Name:      "snapshot_requests_total",
		Help:      "REST snapshot requests served",
	}, []string{"domain"})
	m.buildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "feedsim",
		Name:      "frame_build_seconds",
		Help:      "time to build one broadcast frame",
		Buckets:   prometheus.DefBuckets,
	})
	m.reg.MustRegister(m.framesTotal, m.connectedClients, m.snapshotReqs, m.buildSeconds)
	return m
}

func (m *opMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
