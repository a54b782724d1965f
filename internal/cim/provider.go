// Package cim supplies raw CIM records to the topology resolver.
//
// A QueryProvider returns every instance of one named class. Providers may be
// backed by a live WBEM server (WBEMClient), a captured snapshot (Snapshot) or
// fixed in-memory data (StaticProvider). The resolver never talks to a provider
// directly: a Collector runs every query up front and hands it a Snapshot.
package cim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"smiscope/internal/domain"
)

// ErrClassNotSupported is returned by providers for classes the target does not implement
var ErrClassNotSupported = errors.New("class not supported")

// QueryProvider returns the instances of a named CIM class.
// An unsupported class yields an empty result or ErrClassNotSupported.
type QueryProvider interface {
	Query(ctx context.Context, className string) ([]domain.RawEntityRecord, error)
}

// QueryFunc adapts a function to QueryProvider
type QueryFunc func(ctx context.Context, className string) ([]domain.RawEntityRecord, error)

// Query calls f
func (f QueryFunc) Query(ctx context.Context, className string) ([]domain.RawEntityRecord, error) {
	return f(ctx, className)
}

// QueryResult is the outcome of one class query
type QueryResult struct {
	Class   string
	Records []domain.RawEntityRecord
	Err     error
}

// Unsupported reports whether the target does not implement the class
func (r QueryResult) Unsupported() bool {
	return errors.Is(r.Err, ErrClassNotSupported)
}

// Failed reports whether the query failed for a reason other than an unsupported class
func (r QueryResult) Failed() bool {
	return r.Err != nil && !r.Unsupported()
}

// SafeQuery runs one query and never fails: any error, including a provider
// panic, becomes an empty result carrying the error for accounting.
func SafeQuery(ctx context.Context, p QueryProvider, className string, logger *slog.Logger) (result QueryResult) {
	if logger == nil {
		logger = slog.Default()
	}
	result.Class = className
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result.Records = nil
			result.Err = fmt.Errorf("query %s panicked: %v", className, r)
		}

		outcome := "ok"
		switch {
		case result.Unsupported():
			outcome = "unsupported"
			logger.Debug("class not supported by target", "class", className)
		case result.Failed():
			outcome = "failed"
			logger.Warn("query failed, continuing with empty result", "class", className, "error", result.Err)
		}
		queriesTotal.WithLabelValues(outcome).Inc()
		queryDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	records, err := p.Query(ctx, className)
	if err != nil {
		result.Err = err
		return result
	}
	result.Records = records
	return result
}
