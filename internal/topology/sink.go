package topology

import (
	"context"
	"fmt"
	"sync"

	"smiscope/internal/domain"
)

// Sink receives resolved nodes and edges in phase order.
// CreateEdge is only called with handles CreateNode returned earlier in the run.
type Sink interface {
	CreateNode(ctx context.Context, nodeType domain.NodeType, key domain.Reference, attrs map[string]any) (domain.Handle, error)
	CreateEdge(ctx context.Context, kind domain.EdgeType, from, to domain.Handle) error
}

// FragmentSink collects the run into a GraphFragment. Handles are node ids.
type FragmentSink struct {
	mu       sync.Mutex
	fragment *domain.GraphFragment
	index    map[domain.Handle]int
}

// NewFragmentSink creates a sink whose fragment is tagged with source
func NewFragmentSink(source string) *FragmentSink {
	return &FragmentSink{
		fragment: domain.NewGraphFragment(source),
		index:    make(map[domain.Handle]int),
	}
}

// CreateNode implements Sink
func (s *FragmentSink) CreateNode(ctx context.Context, nodeType domain.NodeType, key domain.Reference, attrs map[string]any) (domain.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	label, _ := attrs["label"].(string)
	if label == "" {
		label = key.String()
	}

	node := domain.NewNode(nodeType, key, label)
	node.Source = s.fragment.Source
	for k, v := range attrs {
		node.SetProperty(k, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h := domain.Handle(node.ID)
	if _, exists := s.index[h]; exists {
		return h, nil
	}
	s.index[h] = len(s.fragment.Nodes)
	s.fragment.AddNode(*node)
	return h, nil
}

// CreateEdge implements Sink
func (s *FragmentSink) CreateEdge(ctx context.Context, kind domain.EdgeType, from, to domain.Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[from]; !ok {
		return fmt.Errorf("unknown edge source %s", from)
	}
	if _, ok := s.index[to]; !ok {
		return fmt.Errorf("unknown edge target %s", to)
	}
	s.fragment.AddEdge(*domain.NewEdge(string(from), string(to), kind))
	return nil
}

// Fragment returns the collected fragment
func (s *FragmentSink) Fragment() *domain.GraphFragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragment
}
