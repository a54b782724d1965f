// Package topology resolves collected CIM records into a storage topology
// graph. Resolution runs in a fixed phase order against a read-only snapshot;
// per-record and per-edge problems are logged and counted, never returned.
package topology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"smiscope/internal/cim"
	"smiscope/internal/domain"
	"smiscope/internal/profile"
)

// ErrConfiguration is returned when a run cannot start at all
var ErrConfiguration = errors.New("configuration error")

// Builder resolves snapshots into topologies
type Builder struct {
	logger        *slog.Logger
	maxConcurrent int
}

// Option is a functional option for configuring Builder
type Option func(*Builder)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMaxConcurrentQueries bounds parallel class queries during Discover
func WithMaxConcurrentQueries(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxConcurrent = n
		}
	}
}

// MaxConcurrentQueries returns the bound on parallel class queries
func (b *Builder) MaxConcurrentQueries() int {
	return b.maxConcurrent
}

// NewBuilder creates a builder
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger:        slog.Default(),
		maxConcurrent: cim.DefaultMaxConcurrentQueries,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Discover collects every class the profile names from provider and resolves
// the result. Query failures degrade the topology; they are not errors.
func (b *Builder) Discover(ctx context.Context, provider cim.QueryProvider, p *profile.Profile, sink Sink, target string) (*domain.Topology, *cim.Snapshot, error) {
	if err := checkProfile(p); err != nil {
		return nil, nil, err
	}
	if provider == nil {
		return nil, nil, fmt.Errorf("%w: nil query provider", ErrConfiguration)
	}

	ctx, span := tracer.Start(ctx, "topology.Discover", trace.WithAttributes(
		attribute.String("target", target),
		attribute.String("profile", p.Name),
	))
	defer span.End()

	collector := cim.NewCollector(provider,
		cim.WithMaxConcurrent(b.maxConcurrent),
		cim.WithTarget(target),
		cim.WithCollectorLogger(b.logger),
	)
	snap, err := collector.Collect(ctx, p.Classes())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collection cancelled")
		return nil, nil, err
	}
	snap.Profile = p.Name

	topo, err := b.Build(ctx, snap, p, sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution failed")
	}
	return topo, snap, err
}

// Build resolves a snapshot. The returned topology is complete unless ctx
// was cancelled, in which case the partial topology and ctx's error are returned.
func (b *Builder) Build(ctx context.Context, snap *cim.Snapshot, p *profile.Profile, sink Sink) (*domain.Topology, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrConfiguration)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil entity sink", ErrConfiguration)
	}
	if err := checkProfile(p); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "topology.Build", trace.WithAttributes(
		attribute.String("target", snap.Target),
		attribute.String("profile", p.Name),
	))
	defer span.End()

	start := time.Now()
	logger := b.logger.With("target", snap.Target, "profile", p.Name)
	r := newRun(ctx, snap, p, sink, logger)
	r.topo.Stats.Queries = snap.QueryCount()
	r.topo.Stats.FailedQueries = snap.FailureCount()
	for class, msg := range snap.Failures {
		logger.Warn("class query failed", "class", class, "error", msg)
	}

	for _, ph := range phases {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return r.topo, err
		}
		r.phase = ph.name
		_, phaseSpan := tracer.Start(ctx, "topology.phase."+ph.name)
		nodes, edges := len(r.topo.Nodes), len(r.topo.Edges)
		ph.fn(r)
		phaseSpan.SetAttributes(
			attribute.Int("nodes", len(r.topo.Nodes)-nodes),
			attribute.Int("edges", len(r.topo.Edges)-edges),
		)
		phaseSpan.End()
	}

	buildDuration.Observe(time.Since(start).Seconds())
	stats := r.topo.Stats
	span.SetAttributes(
		attribute.Int("nodes", len(r.topo.Nodes)),
		attribute.Int("edges", len(r.topo.Edges)),
		attribute.Int("dropped_edges", stats.DroppedEdges),
	)
	logger.Info("topology resolved",
		"nodes", len(r.topo.Nodes),
		"edges", len(r.topo.Edges),
		"queries", stats.Queries,
		"failed_queries", stats.FailedQueries,
		"skipped_records", stats.SkippedRecords,
		"dropped_edges", stats.DroppedEdges,
		"omitted_views", stats.OmittedViews,
		"duration", time.Since(start))
	return r.topo, nil
}

func checkProfile(p *profile.Profile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrConfiguration)
	}
	if p.Entity(profile.EntityArray) == "" {
		return fmt.Errorf("%w: %w", ErrConfiguration, profile.ErrNoArrayClass)
	}
	return nil
}
