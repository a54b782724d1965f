package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smiscope_http_requests_total",
		Help: "API requests by method and status code.",
	}, []string{"method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smiscope_http_request_duration_seconds",
		Help:    "API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "code"})
)

// NewRouter wires the API routes. events serves the SSE stream; nil leaves
// /api/events unrouted.
func NewRouter(h *TopologyHandler, events http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	// Targets and discovery
	mux.HandleFunc("GET /api/targets", h.ListTargets)
	mux.HandleFunc("GET /api/targets/{name}/topology", h.GetTopology)
	mux.HandleFunc("DELETE /api/targets/{name}/topology", h.DeleteTopology)
	mux.HandleFunc("POST /api/targets/{name}/discover", h.TriggerTargetDiscovery)
	mux.HandleFunc("POST /api/discover", h.TriggerDiscovery)

	// Stored graph
	mux.HandleFunc("GET /api/nodes", h.ListNodes)
	mux.HandleFunc("GET /api/nodes/{id}", h.GetNode)
	mux.HandleFunc("GET /api/edges", h.ListEdges)

	// Run history
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("GET /api/runs/{id}", h.GetRun)

	// Import/export
	mux.HandleFunc("GET /api/export/{format}", h.Export)
	mux.HandleFunc("POST /api/import/{format}", h.Import)

	mux.HandleFunc("GET /api/profiles", h.ListProfiles)
	mux.HandleFunc("GET /api/secrets", h.ListSecrets)
	mux.HandleFunc("GET /api/secrets/{id}", h.GetSecret)

	if events != nil {
		mux.Handle("GET /api/events", events)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	instrumented := promhttp.InstrumentHandlerDuration(httpDuration,
		promhttp.InstrumentHandlerCounter(httpRequests, mux))
	return logRequests(instrumented, logger)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logRequests(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
