package topology

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("smiscope.topology")

var (
	// nodesTotal counts resolved nodes by type
	nodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smiscope_topology_nodes_total",
		Help: "Total resolved topology nodes by type",
	}, []string{"type"})

	// edgesTotal counts resolved edges by kind
	edgesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smiscope_topology_edges_total",
		Help: "Total resolved topology edges by kind",
	}, []string{"kind"})

	// droppedEdgesTotal counts edges whose endpoints did not resolve
	droppedEdgesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smiscope_topology_dropped_edges_total",
		Help: "Total edges dropped because an endpoint was not resolved",
	}, []string{"phase"})

	// skippedRecordsTotal counts raw records that failed parsing
	skippedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smiscope_topology_skipped_records_total",
		Help: "Total raw records skipped during resolution",
	}, []string{"phase"})

	// buildDuration tracks resolution latency
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smiscope_topology_build_duration_seconds",
		Help:    "Topology resolution duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})
)
