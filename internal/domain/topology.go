package domain

// RunStats counts what a discovery run recovered from locally
type RunStats struct {
	Queries        int `json:"queries"`
	FailedQueries  int `json:"failed_queries"`
	SkippedRecords int `json:"skipped_records"`
	DroppedEdges   int `json:"dropped_edges"`
	OmittedViews   int `json:"omitted_masking_views"`
}

// Topology is the resolved node/edge graph of one discovery run.
// It is handed to an entity sink and never persisted by the resolver itself.
type Topology struct {
	Nodes []ResolvedNode `json:"nodes"`
	Edges []ResolvedEdge `json:"edges"`
	Stats RunStats       `json:"stats"`
}

// NodesOfType returns the resolved nodes of one type
func (t *Topology) NodesOfType(nodeType NodeType) []ResolvedNode {
	var out []ResolvedNode
	for _, n := range t.Nodes {
		if n.Type == nodeType {
			out = append(out, n)
		}
	}
	return out
}

// EdgesOfKind returns the resolved edges of one kind
func (t *Topology) EdgesOfKind(kind EdgeType) []ResolvedEdge {
	var out []ResolvedEdge
	for _, e := range t.Edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Node returns the resolved node behind a handle
func (t *Topology) Node(h Handle) (ResolvedNode, bool) {
	for _, n := range t.Nodes {
		if n.Handle == h {
			return n, true
		}
	}
	return ResolvedNode{}, false
}

// NodeByKey returns the resolved node of a type with the given identity key
func (t *Topology) NodeByKey(nodeType NodeType, key Reference) (ResolvedNode, bool) {
	for _, n := range t.Nodes {
		if n.Type == nodeType && n.Key == key {
			return n, true
		}
	}
	return ResolvedNode{}, false
}
