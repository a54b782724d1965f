package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"smiscope/internal/codec"
	"smiscope/internal/domain"
	"smiscope/internal/repository"
)

// ErrNotFound is returned when a node, run or source does not exist
var ErrNotFound = errors.New("not found")

// TopologyService provides read access to stored topologies plus import/export
type TopologyService struct {
	repo     repository.Repository
	eventBus *EventBus
}

// NewTopologyService creates a new topology service
func NewTopologyService(repo repository.Repository, eventBus *EventBus) *TopologyService {
	return &TopologyService{
		repo:     repo,
		eventBus: eventBus,
	}
}

// ListSources returns the targets with stored topology
func (s *TopologyService) ListSources(ctx context.Context) ([]string, error) {
	return s.repo.ListSources(ctx)
}

// GetTopology returns the stored topology of one target
func (s *TopologyService) GetTopology(ctx context.Context, source string) (*domain.GraphFragment, error) {
	frag, err := s.repo.ExportFragment(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(frag.Nodes) == 0 {
		return nil, fmt.Errorf("topology of %s: %w", source, ErrNotFound)
	}
	return frag, nil
}

// GetNode retrieves a single node by ID
func (s *TopologyService) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	node, err := s.repo.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return node, nil
}

// ListNodes returns all nodes, optionally filtered
func (s *TopologyService) ListNodes(ctx context.Context, nodeType, source string) ([]domain.Node, error) {
	return s.repo.ListNodes(ctx, nodeType, source)
}

// ListEdges returns all edges, optionally filtered
func (s *TopologyService) ListEdges(ctx context.Context, edgeType, source string) ([]domain.Edge, error) {
	return s.repo.ListEdges(ctx, edgeType, source)
}

// DeleteSource removes a target's stored topology
func (s *TopologyService) DeleteSource(ctx context.Context, source string) error {
	if err := s.repo.DeleteSource(ctx, source); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventSourceDeleted,
		Payload: map[string]string{"source": source},
	})

	return nil
}

// ListRuns returns the run history, newest first
func (s *TopologyService) ListRuns(ctx context.Context, target string, limit int) ([]domain.DiscoveryRun, error) {
	return s.repo.ListRuns(ctx, target, limit)
}

// GetRun retrieves a single run by ID
func (s *TopologyService) GetRun(ctx context.Context, id string) (*domain.DiscoveryRun, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, nil
}

// Export renders the stored topology of source (all sources when empty)
func (s *TopologyService) Export(ctx context.Context, source, format string) ([]byte, error) {
	exporter, err := codec.ExporterFor(format)
	if err != nil {
		return nil, err
	}

	frag, err := s.repo.ExportFragment(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load topology: %w", err)
	}

	var buf bytes.Buffer
	if err := exporter.Export(frag, &buf); err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Import stores a fragment read from r. The fragment's source, or source
// when the file names none, owns the imported rows.
func (s *TopologyService) Import(ctx context.Context, r io.Reader, format, source, strategy string) (map[string]int, error) {
	importer, err := codec.ImporterFor(format)
	if err != nil {
		return nil, err
	}
	if strategy == "" {
		strategy = repository.StrategyMerge
	}
	if strategy != repository.StrategyMerge && strategy != repository.StrategyReplace {
		return nil, fmt.Errorf("unknown import strategy %q", strategy)
	}

	frag, err := importer.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}
	if frag.Source == "" {
		frag.Source = source
	}
	if frag.Source == "" {
		return nil, errors.New("import needs a source")
	}

	counts, err := s.repo.ImportFragment(ctx, frag, strategy)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventTopologyUpdated,
		Payload: map[string]any{"target": frag.Source, "changes": counts},
	})

	return counts, nil
}
