package topology

import (
	"strings"

	"smiscope/internal/domain"
	"smiscope/internal/identity"
	"smiscope/internal/profile"
)

// phase is one step of resolution. Later phases may only reference nodes
// created by earlier ones.
type phase struct {
	name string
	fn   func(*run)
}

// phases is the fixed resolution order
var phases = []phase{
	{"arrays", (*run).resolveArrays},
	{"processors", (*run).resolveProcessors},
	{"io_groups", (*run).resolveIOGroups},
	{"remote_endpoints", (*run).resolveRemoteEndpoints},
	{"ports", (*run).resolvePorts},
	{"host_adapters", (*run).resolveHostAdapters},
	{"physical_volumes", (*run).resolvePhysicalVolumes},
	{"pools", (*run).resolvePools},
	{"pool_edges", (*run).resolvePoolEdges},
	{"logical_volumes", (*run).resolveLogicalVolumes},
	{"file_systems", (*run).resolveFileSystems},
	{"file_shares", (*run).resolveFileShares},
	{"endpoint_links", (*run).resolveEndpointLinks},
	{"masking", (*run).resolveMasking},
}

// PhaseOrder returns the phase names in execution order
func PhaseOrder() []string {
	out := make([]string, len(phases))
	for i, p := range phases {
		out[i] = p.name
	}
	return out
}

func (r *run) resolveArrays() {
	for _, rec := range r.records(profile.EntityArray) {
		a, err := r.parsers.Array(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		if h, ok := r.node(domain.NodeTypeStorageArray, a.Key, a.Properties()); ok {
			r.arrays[a.Key] = h
		}
	}
}

func (r *run) resolveProcessors() {
	// vendors that model ownership as an association instead of SystemName
	owners := r.targetOwners(profile.AssocProcessorOwnership)

	for _, rec := range r.records(profile.EntityProcessor) {
		p, err := r.parsers.Processor(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		owner := p.Owner
		if owner.IsZero() {
			owner, _ = identity.Lookup(p.Key, owners)
		}
		h, ok := r.node(domain.NodeTypeStorageProcessor, p.Key, p.Properties())
		if !ok {
			continue
		}
		r.processors[p.Key] = h
		if p.IOGroupID != "" {
			r.processorGroups[h] = p.IOGroupID
		}
		r.contain(owner, h)
	}
}

func (r *run) resolveIOGroups() {
	for _, rec := range r.records(profile.EntityIOGroup) {
		g, err := r.parsers.IOGroup(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		h, ok := r.node(domain.NodeTypeIOGroup, g.Key, g.Properties())
		if !ok {
			continue
		}
		r.ioGroups[g.Key] = h
		if g.Name != "" {
			r.ioGroupsByName[g.Name] = h
		}
		r.contain(g.Owner, h)
	}

	r.linkMany(domain.EdgeTypeMembership, r.ioGroups, r.oneToMany(profile.AssocIOGroupMember), r.processors, nil)

	// processors that only report their group id
	for _, n := range r.topo.NodesOfType(domain.NodeTypeStorageProcessor) {
		id, ok := r.processorGroups[n.Handle]
		if !ok {
			continue
		}
		if g, ok := r.ioGroupsByName[id]; ok {
			r.edge(domain.EdgeTypeMembership, g, n.Handle)
		}
	}
}

func (r *run) resolveRemoteEndpoints() {
	for _, rec := range r.records(profile.EntityRemoteEndpoint) {
		e, err := r.parsers.RemoteEndpoint(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		h, ok := r.node(domain.NodeTypeRemoteEndpoint, e.Key, e.Properties())
		if !ok {
			continue
		}
		r.remotes[e.Key] = h
		if e.WWN != "" {
			r.remotesByID[e.WWN] = h
		}
		r.contain(e.Owner, h)
	}
}

func (r *run) resolvePorts() {
	for _, rec := range r.records(profile.EntityPort) {
		p, err := r.parsers.Port(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		h, ok := r.node(domain.NodeTypeFCPort, p.Key, p.Properties())
		if !ok {
			continue
		}
		r.ports[p.Key] = h
		if p.WWN != "" {
			r.portsByWWN[p.WWN] = h
		}
		r.contain(p.Owner, h)
	}

	for _, a := range r.associations(profile.AssocProcessorPort) {
		// system-device style associations also name the array as the group
		if _, ok := identity.Lookup(a.Source, r.arrays); ok {
			continue
		}
		r.link(domain.EdgeTypeContainment, r.processors, a.Source, r.ports, a.Target)
	}
}

func (r *run) resolveHostAdapters() {
	for _, rec := range r.records(profile.EntityHostAdapter) {
		a, err := r.parsers.HostAdapter(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		h, ok := r.node(domain.NodeTypeHostAdapter, a.Key, a.Properties())
		if !ok {
			continue
		}
		r.adapters[a.Key] = h
		r.contain(a.Owner, h)
	}

	r.linkMany(domain.EdgeTypeContainment, r.adapters, r.oneToMany(profile.AssocAdapterPort), r.ports, nil)
}

// resolvePhysicalVolumes leaves logical volumes to their own phase. Providers
// enumerate subclasses too, so the extent class also returns every volume.
func (r *run) resolvePhysicalVolumes() {
	volumeClass := r.profile.Entity(profile.EntityLogicalVolume)
	volumes := r.logicalVolumeKeys()

	for _, rec := range r.records(profile.EntityPhysicalVolume) {
		if volumeClass != "" && strings.EqualFold(rec.Class, volumeClass) {
			continue
		}
		v, err := r.parsers.PhysicalVolume(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		if _, ok := volumes[v.Key]; ok {
			r.logger.Debug("extent is a logical volume", "key", v.Key.String(), "class", rec.Class)
			continue
		}
		h, ok := r.node(domain.NodeTypePhysicalVolume, v.Key, v.Properties())
		if !ok {
			continue
		}
		r.physical[v.Key] = h
		r.contain(v.Owner, h)
	}
}

// logicalVolumeKeys returns the identity keys of the logical volume records
func (r *run) logicalVolumeKeys() map[domain.Reference]struct{} {
	keys := make(map[domain.Reference]struct{})
	for _, rec := range r.records(profile.EntityLogicalVolume) {
		if v, err := r.parsers.LogicalVolume(rec); err == nil {
			keys[v.Key] = struct{}{}
		}
	}
	return keys
}

func (r *run) resolvePools() {
	for _, rec := range r.records(profile.EntityPool) {
		p, err := r.parsers.Pool(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		h, ok := r.node(domain.NodeTypeStoragePool, p.Key, p.Properties())
		if !ok {
			continue
		}
		r.pools[p.Key] = h
		r.contain(p.Owner, h)
	}
}

// resolvePoolEdges links pools to child pools and to the physical volumes
// they consume. Allocation targets that are logical volumes are left for the
// logical volume phase.
func (r *run) resolvePoolEdges() {
	hierarchyShared := r.sharesClass(profile.AssocPoolHierarchy, profile.AssocPoolAllocation)

	var childPools func(domain.Reference) bool
	if hierarchyShared {
		childPools = func(ref domain.Reference) bool {
			_, ok := identity.Lookup(ref, r.pools)
			return ok
		}
	}
	r.linkMany(domain.EdgeTypeMembership, r.pools, r.oneToMany(profile.AssocPoolHierarchy), r.pools, childPools)

	r.linkMany(domain.EdgeTypeUsage, r.pools, r.oneToMany(profile.AssocPoolComponent), r.physical, nil)

	r.linkMany(domain.EdgeTypeUsage, r.pools, r.oneToMany(profile.AssocPoolAllocation), r.physical, func(ref domain.Reference) bool {
		_, ok := identity.Lookup(ref, r.physical)
		return ok
	})
}

func (r *run) resolveLogicalVolumes() {
	for _, rec := range r.records(profile.EntityLogicalVolume) {
		v, err := r.parsers.LogicalVolume(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		h, ok := r.node(domain.NodeTypeLogicalVolume, v.Key, v.Properties())
		if !ok {
			continue
		}
		r.logical[v.Key] = h
		r.contain(v.Owner, h)
	}

	allocated := r.oneToMany(profile.AssocPoolAllocation)
	for _, pool := range allocated.Sources {
		for _, target := range allocated.Targets[pool] {
			if _, ok := identity.Lookup(target, r.logical); !ok {
				// handled as pool usage or hierarchy
				_, pv := identity.Lookup(target, r.physical)
				_, child := identity.Lookup(target, r.pools)
				if !pv && !child {
					r.drop(domain.EdgeTypeMembership, pool, target)
				}
				continue
			}
			r.link(domain.EdgeTypeMembership, r.pools, pool, r.logical, target)
		}
	}

	for _, a := range r.associations(profile.AssocVolumeExtent) {
		r.link(domain.EdgeTypeDependency, r.logical, a.Source, r.physical, a.Target)
	}
}

func (r *run) resolveFileSystems() {
	for _, rec := range r.records(profile.EntityFileSystem) {
		f, err := r.parsers.FileSystem(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		h, ok := r.node(domain.NodeTypeFileSystem, f.Key, f.Properties())
		if !ok {
			continue
		}
		r.fileSystems[f.Key] = h
		r.contain(f.Owner, h)
	}

	for _, a := range r.associations(profile.AssocFileSystemVolume) {
		r.link(domain.EdgeTypeDependency, r.fileSystems, a.Source, r.logical, a.Target)
	}
}

// resolveFileShares only keeps shares whose host array resolves
func (r *run) resolveFileShares() {
	for _, rec := range r.records(profile.EntityFileShare) {
		s, err := r.parsers.FileShare(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		host, ok := identity.Lookup(s.Owner, r.arrays)
		if s.Owner.IsZero() || !ok {
			r.topo.Stats.SkippedRecords++
			skippedRecordsTotal.WithLabelValues(r.phase).Inc()
			r.logger.Warn("dropping file share without host array", "share", s.Key.String(), "owner", s.Owner.String())
			continue
		}
		h, ok := r.node(domain.NodeTypeFileShare, s.Key, s.Properties())
		if !ok {
			continue
		}
		r.shares[s.Key] = h
		r.edge(domain.EdgeTypeContainment, host, h)
	}

	for _, a := range r.associations(profile.AssocShareFileSystem) {
		r.link(domain.EdgeTypeRealization, r.shares, a.Source, r.fileSystems, a.Target)
	}
}

func (r *run) resolveEndpointLinks() {
	for _, a := range r.associations(profile.AssocEndpointLink) {
		r.link(domain.EdgeTypeFCConnect, r.ports, a.Source, r.remotes, a.Target)
	}
}
