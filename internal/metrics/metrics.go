package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "roblox_bridge"

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PollAttempts    *prometheus.HistogramVec
	UpdatesTotal    *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Open Cloud calls by method and failure kind",
			},
			[]string{"method", "failure"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Open Cloud call latency",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"method"},
		),
		PollAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_attempts",
				Help:      "Status queries issued per operation",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"failure"},
		),
		UpdatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "script_updates_total",
				Help:      "Script update invocations by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveRequest records one executor call.
func (m *Metrics) ObserveRequest(method, failure string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, failure).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObservePoll records how many attempts one polling sequence used.
func (m *Metrics) ObservePoll(attempts int, failure string) {
	m.PollAttempts.WithLabelValues(failure).Observe(float64(attempts))
}

// ObserveOutcome counts a finished update invocation.
func (m *Metrics) ObserveOutcome(kind string) {
	m.UpdatesTotal.WithLabelValues(kind).Inc()
}

// Server serves Prometheus metrics and a liveness endpoint.
type Server struct {
	server *http.Server
	logger *logrus.Entry
}

// NewServer creates a metrics HTTP server exposing gatherer on /metrics.
func NewServer(addr string, gatherer prometheus.Gatherer, logger *logrus.Entry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.WithField("component", "metrics"),
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving metrics. It returns http.ErrServerClosed after Stop.
func (s *Server) Start() error {
	s.logger.Infof("starting server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
