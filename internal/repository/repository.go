package repository

import (
	"context"

	"smiscope/internal/domain"
)

// Import strategies for ImportFragment
const (
	// StrategyMerge upserts the fragment and leaves other rows of the source alone
	StrategyMerge = "merge"
	// StrategyReplace upserts the fragment and removes rows of the source it no longer contains
	StrategyReplace = "replace"
)

// Repository defines the interface for topology data access
type Repository interface {
	// Topology
	GetNode(ctx context.Context, id string) (*domain.Node, error)
	ListNodes(ctx context.Context, nodeType, source string) ([]domain.Node, error)
	ListEdges(ctx context.Context, edgeType, source string) ([]domain.Edge, error)
	ListSources(ctx context.Context) ([]string, error)
	ImportFragment(ctx context.Context, fragment *domain.GraphFragment, strategy string) (map[string]int, error)
	ExportFragment(ctx context.Context, source string) (*domain.GraphFragment, error)
	DeleteSource(ctx context.Context, source string) error

	// Run history
	RecordRun(ctx context.Context, run *domain.DiscoveryRun) error
	GetRun(ctx context.Context, id string) (*domain.DiscoveryRun, error)
	ListRuns(ctx context.Context, target string, limit int) ([]domain.DiscoveryRun, error)

	// Close releases resources
	Close() error
}
