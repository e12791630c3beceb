package orchestrator

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors the server exposes for operational
// visibility into queueing and segment throughput. Each Server owns its own
// registry rather than using the global default, so multiple servers (as in
// tests) can coexist in one process without a duplicate-registration panic.
type Metrics struct {
	Registry        *prometheus.Registry
	QueueDepth      prometheus.Gauge
	SegmentsEmitted prometheus.Counter
	SegmentsDropped prometheus.Counter
}

// NewMetrics creates a fresh registry and collector set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "segcore_asr_inflight_jobs",
			Help: "Number of ASR jobs submitted but not yet resolved.",
		}),
		SegmentsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "segcore_segments_emitted_total",
			Help: "Total number of speech segments successfully transcribed.",
		}),
		SegmentsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "segcore_segments_dropped_total",
			Help: "Total number of speech segments dropped due to a full ASR queue.",
		}),
	}
}

// serveMetrics runs a dedicated HTTP server for /metrics scraping. It runs
// until its listener fails (normally only on process shutdown), so callers
// invoke it on its own goroutine.
func (s *Server) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Error("metrics server exited", "error", err)
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
