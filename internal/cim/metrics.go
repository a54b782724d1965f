package cim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queriesTotal counts class queries by outcome (ok, unsupported, failed)
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smiscope_cim_queries_total",
		Help: "Total CIM class queries by outcome",
	}, []string{"outcome"})

	// queryDuration tracks class query latency
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smiscope_cim_query_duration_seconds",
		Help:    "CIM class query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"outcome"})

	// wbemRequestsTotal counts CIM-XML HTTP exchanges by status
	wbemRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smiscope_wbem_requests_total",
		Help: "Total CIM-XML requests by HTTP status class",
	}, []string{"status"})

	// wbemInstances tracks instances returned per enumeration
	wbemInstances = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smiscope_wbem_instances_per_request",
		Help:    "Instances returned per EnumerateInstances request",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000},
	})
)
