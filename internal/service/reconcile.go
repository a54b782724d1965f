package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"smiscope/internal/adapter"
	"smiscope/internal/domain"
	"smiscope/internal/repository"
)

// ReconcileRepository defines the repository interface for reconciliation
type ReconcileRepository interface {
	ImportFragment(ctx context.Context, fragment *domain.GraphFragment, strategy string) (map[string]int, error)
	RecordRun(ctx context.Context, run *domain.DiscoveryRun) error
}

// ReconcileService stores adapter results and keeps the run history
type ReconcileService struct {
	repo     ReconcileRepository
	eventBus *EventBus
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(repo ReconcileRepository, eventBus *EventBus, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile implements adapter.ReconcileFunc. A successful sync replaces the
// stored topology of the source; every sync, failed or not, is recorded as a run.
func (r *ReconcileService) Reconcile(ctx context.Context, source string, result *adapter.SyncResult, syncErr error) error {
	run := &domain.DiscoveryRun{
		ID:         uuid.NewString(),
		Target:     source,
		Status:     domain.RunStatusSucceeded,
		StartedAt:  r.now(),
		FinishedAt: r.now(),
	}
	logger := r.logger.With("target", source, "run_id", run.ID)

	if syncErr != nil || result == nil {
		run.Status = domain.RunStatusFailed
		if syncErr != nil {
			run.Error = syncErr.Error()
		}
		return r.record(ctx, logger, run)
	}

	run.Profile = result.Profile
	run.Stats = result.Stats
	if !result.StartedAt.IsZero() {
		run.StartedAt = result.StartedAt
	}
	if !result.FinishedAt.IsZero() {
		run.FinishedAt = result.FinishedAt
	}

	frag := result.Fragment
	if frag == nil {
		frag = domain.NewGraphFragment(source)
	}
	frag.Source = source
	run.Nodes, run.Edges = len(frag.Nodes), len(frag.Edges)

	counts, err := r.repo.ImportFragment(ctx, frag, repository.StrategyReplace)
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = fmt.Sprintf("store topology: %v", err)
		if recErr := r.record(ctx, logger, run); recErr != nil {
			logger.Error("failed to record run", "error", recErr)
		}
		return fmt.Errorf("store topology of %s: %w", source, err)
	}

	logger.Info("topology stored",
		"profile", run.Profile,
		"nodes_created", counts["nodes_created"],
		"nodes_updated", counts["nodes_updated"],
		"nodes_removed", counts["nodes_removed"],
		"edges_created", counts["edges_created"],
		"edges_removed", counts["edges_removed"],
	)
	r.eventBus.Publish(Event{
		Type: EventTopologyUpdated,
		Payload: map[string]any{
			"target":  source,
			"run_id":  run.ID,
			"changes": counts,
		},
	})

	return r.record(ctx, logger, run)
}

func (r *ReconcileService) record(ctx context.Context, logger *slog.Logger, run *domain.DiscoveryRun) error {
	if err := r.repo.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if run.Status == domain.RunStatusFailed {
		logger.Warn("discovery run failed", "error", run.Error)
	}
	r.eventBus.Publish(Event{Type: EventRunRecorded, Payload: run})
	return nil
}
