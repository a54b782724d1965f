package topology

import (
	"context"
	"log/slog"

	"smiscope/internal/cim"
	"smiscope/internal/domain"
	"smiscope/internal/identity"
	"smiscope/internal/index"
	"smiscope/internal/profile"
)

// table maps identity keys to the handles of nodes created for them
type table map[domain.Reference]domain.Handle

// resolved is the node created for an identity key
type resolved struct {
	nodeType domain.NodeType
	handle   domain.Handle
}

type edgeKey struct {
	kind     domain.EdgeType
	from, to domain.Handle
}

// run is the state of one resolution pass. It is never shared between runs.
type run struct {
	ctx     context.Context
	snap    *cim.Snapshot
	profile *profile.Profile
	parsers profile.Parsers
	sink    Sink
	logger  *slog.Logger
	phase   string

	topo  *domain.Topology
	nodes map[domain.Reference]resolved
	edges map[edgeKey]struct{}

	arrays      table
	processors  table
	ioGroups    table
	remotes     table
	ports       table
	adapters    table
	physical    table
	pools       table
	logical     table
	fileSystems table
	shares      table

	// ioGroupsByName lets processors that only carry an IO group id join their group
	ioGroupsByName map[string]domain.Handle
	// processorGroups holds the IO group id each processor reported
	processorGroups map[domain.Handle]string
	// portsByWWN and remotesByID index endpoints for masking expansion
	portsByWWN  map[string]domain.Handle
	remotesByID map[string]domain.Handle
}

func newRun(ctx context.Context, snap *cim.Snapshot, p *profile.Profile, sink Sink, logger *slog.Logger) *run {
	return &run{
		ctx:             ctx,
		snap:            snap,
		profile:         p,
		parsers:         p.ResolvedParsers(),
		sink:            sink,
		logger:          logger,
		topo:            &domain.Topology{Nodes: []domain.ResolvedNode{}, Edges: []domain.ResolvedEdge{}},
		nodes:           make(map[domain.Reference]resolved),
		edges:           make(map[edgeKey]struct{}),
		arrays:          make(table),
		processors:      make(table),
		ioGroups:        make(table),
		remotes:         make(table),
		ports:           make(table),
		adapters:        make(table),
		physical:        make(table),
		pools:           make(table),
		logical:         make(table),
		fileSystems:     make(table),
		shares:          make(table),
		ioGroupsByName:  make(map[string]domain.Handle),
		processorGroups: make(map[domain.Handle]string),
		portsByWWN:      make(map[string]domain.Handle),
		remotesByID:     make(map[string]domain.Handle),
	}
}

// records returns the snapshot records behind an entity, nil when the profile has no class for it
func (r *run) records(e profile.EntityClass) []domain.RawEntityRecord {
	class := r.profile.Entity(e)
	if class == "" {
		return nil
	}
	return r.snap.Records(class)
}

// associations extracts an association's pairs in record order without repeats
func (r *run) associations(a profile.AssociationClass) []domain.AssociationRecord {
	spec, ok := r.profile.Association(a)
	if !ok {
		return nil
	}
	return index.Unique(index.Associations(r.snap.Records(spec.Class), spec.SourceRole, spec.TargetRole, domain.AssociationOneToMany))
}

// oneToMany indexes an association as source -> targets
func (r *run) oneToMany(a profile.AssociationClass) index.Many {
	spec, ok := r.profile.Association(a)
	if !ok {
		return index.Many{}
	}
	return index.OneToMany(r.snap.Records(spec.Class), spec.SourceRole, spec.TargetRole)
}

// targetOwners indexes an association backwards as target -> source, keeping
// the last source when a target repeats
func (r *run) targetOwners(a profile.AssociationClass) map[domain.Reference]domain.Reference {
	spec, ok := r.profile.Association(a)
	if !ok {
		return nil
	}
	return index.OneToOne(r.snap.Records(spec.Class), spec.TargetRole, spec.SourceRole)
}

// linkMany links every source of an index to its targets, sources in first-seen order
func (r *run) linkMany(kind domain.EdgeType, from table, m index.Many, to table, keep func(domain.Reference) bool) {
	for _, src := range m.Sources {
		for _, dst := range m.Targets[src] {
			if keep != nil && !keep(dst) {
				continue
			}
			r.link(kind, from, src, to, dst)
		}
	}
}

// sharesClass reports whether two associations are backed by the same concrete class and roles
func (r *run) sharesClass(a, b profile.AssociationClass) bool {
	sa, okA := r.profile.Association(a)
	sb, okB := r.profile.Association(b)
	return okA && okB && sa == sb
}

// skip records a raw record that could not be parsed
func (r *run) skip(rec domain.RawEntityRecord, err error) {
	r.topo.Stats.SkippedRecords++
	skippedRecordsTotal.WithLabelValues(r.phase).Inc()
	r.logger.Warn("skipping record", "phase", r.phase, "class", rec.Class, "error", err)
}

// drop records an edge whose endpoints did not both resolve
func (r *run) drop(kind domain.EdgeType, from, to domain.Reference) {
	r.topo.Stats.DroppedEdges++
	droppedEdgesTotal.WithLabelValues(r.phase).Inc()
	r.logger.Debug("dropping edge", "phase", r.phase, "kind", kind, "from", from.String(), "to", to.String())
}

// node creates a node once per identity key; later calls with the same type
// return the first handle. A key already resolved as another type is rejected.
func (r *run) node(nodeType domain.NodeType, key domain.Reference, attrs map[string]any) (domain.Handle, bool) {
	if prev, ok := r.nodes[key]; ok {
		if prev.nodeType == nodeType {
			return prev.handle, true
		}
		r.topo.Stats.SkippedRecords++
		skippedRecordsTotal.WithLabelValues(r.phase).Inc()
		r.logger.Warn("identity already resolved as another type", "phase", r.phase, "key", key.String(), "type", nodeType, "existing_type", prev.nodeType)
		return "", false
	}

	h, err := r.sink.CreateNode(r.ctx, nodeType, key, attrs)
	if err != nil {
		r.topo.Stats.SkippedRecords++
		skippedRecordsTotal.WithLabelValues(r.phase).Inc()
		r.logger.Warn("sink rejected node", "phase", r.phase, "type", nodeType, "key", key.String(), "error", err)
		return "", false
	}

	r.nodes[key] = resolved{nodeType: nodeType, handle: h}
	r.topo.Nodes = append(r.topo.Nodes, domain.ResolvedNode{
		Key:        key,
		Type:       nodeType,
		Attributes: attrs,
		Handle:     h,
	})
	nodesTotal.WithLabelValues(string(nodeType)).Inc()
	return h, true
}

// edge creates an edge once per (kind, from, to)
func (r *run) edge(kind domain.EdgeType, from, to domain.Handle) bool {
	ek := edgeKey{kind: kind, from: from, to: to}
	if _, ok := r.edges[ek]; ok {
		return true
	}

	if err := r.sink.CreateEdge(r.ctx, kind, from, to); err != nil {
		r.topo.Stats.DroppedEdges++
		droppedEdgesTotal.WithLabelValues(r.phase).Inc()
		r.logger.Warn("sink rejected edge", "phase", r.phase, "kind", kind, "error", err)
		return false
	}

	r.edges[ek] = struct{}{}
	r.topo.Edges = append(r.topo.Edges, domain.ResolvedEdge{Kind: kind, From: from, To: to})
	edgesTotal.WithLabelValues(string(kind)).Inc()
	return true
}

// link resolves both references against their tables and creates the edge.
// Unresolved endpoints drop the edge.
func (r *run) link(kind domain.EdgeType, from table, src domain.Reference, to table, dst domain.Reference) bool {
	fh, okFrom := identity.Lookup(src, from)
	th, okTo := identity.Lookup(dst, to)
	if !okFrom || !okTo {
		r.drop(kind, src, dst)
		return false
	}
	return r.edge(kind, fh, th)
}

// owner finds the array node that contains a component. Unresolved owners
// fall back to the only array when there is exactly one.
func (r *run) owner(ref domain.Reference) (domain.Handle, bool) {
	if !ref.IsZero() {
		if h, ok := identity.Lookup(ref, r.arrays); ok {
			return h, true
		}
	}
	if len(r.arrays) == 1 {
		for _, h := range r.arrays {
			return h, true
		}
	}
	return "", false
}

// contain attaches a component to its array; components without one stay root-level
func (r *run) contain(owner domain.Reference, child domain.Handle) {
	parent, ok := r.owner(owner)
	if !ok {
		r.logger.Debug("component has no resolvable array", "phase", r.phase, "owner", owner.String())
		return
	}
	r.edge(domain.EdgeTypeContainment, parent, child)
}
