package cim

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrentQueries bounds parallel class queries per target
const DefaultMaxConcurrentQueries = 4

// Collector runs a set of independent class queries against one provider
type Collector struct {
	provider      QueryProvider
	maxConcurrent int
	target        string
	logger        *slog.Logger
}

// CollectorOption is a functional option for configuring Collector
type CollectorOption func(*Collector)

// WithMaxConcurrent bounds the number of queries in flight
func WithMaxConcurrent(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithTarget names the target recorded in the snapshot
func WithTarget(name string) CollectorOption {
	return func(c *Collector) {
		c.target = name
	}
}

// WithCollectorLogger sets the logger
func WithCollectorLogger(logger *slog.Logger) CollectorOption {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCollector creates a collector over provider
func NewCollector(provider QueryProvider, opts ...CollectorOption) *Collector {
	c := &Collector{
		provider:      provider,
		maxConcurrent: DefaultMaxConcurrentQueries,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect queries every class and returns once all results are in.
// Individual query failures are recorded in the snapshot; only cancellation of
// ctx is returned as an error.
func (c *Collector) Collect(ctx context.Context, classes []string) (*Snapshot, error) {
	classes = dedupe(classes)
	results := make([]QueryResult, len(classes))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for i, class := range classes {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = SafeQuery(gCtx, c.provider, class, c.logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := NewSnapshot(c.target)
	records := 0
	for _, r := range results {
		snap.Add(r)
		records += len(r.Records)
	}
	c.logger.Debug("collection complete",
		"target", c.target,
		"classes", len(classes),
		"records", records,
		"failed", snap.FailureCount(),
		"unsupported", len(snap.Unsupported))
	return snap, nil
}

func dedupe(classes []string) []string {
	seen := make(map[string]struct{}, len(classes))
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
