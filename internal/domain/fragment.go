package domain

// GraphFragment is the node/edge set produced by one discovery run of one target
type GraphFragment struct {
	Source string `json:"source,omitempty"`
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
}

// NewGraphFragment creates an empty graph fragment
func NewGraphFragment(source string) *GraphFragment {
	return &GraphFragment{
		Source: source,
		Nodes:  make([]Node, 0),
		Edges:  make([]Edge, 0),
	}
}

// AddNode adds a node to the fragment
func (g *GraphFragment) AddNode(node Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge adds an edge to the fragment
func (g *GraphFragment) AddEdge(edge Edge) {
	g.Edges = append(g.Edges, edge)
}

// NodeByID returns the node with the given id
func (g *GraphFragment) NodeByID(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// NodesOfType returns nodes of one type in insertion order
func (g *GraphFragment) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// EdgesOfType returns edges of one type in insertion order
func (g *GraphFragment) EdgesOfType(t EdgeType) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
