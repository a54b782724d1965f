package topology

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smiscope/internal/cim"
	"smiscope/internal/domain"
	"smiscope/internal/profile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func entity(class string, attrs map[string]any) domain.RawEntityRecord {
	return domain.RawEntityRecord{Class: class, Attributes: attrs}
}

func assoc(class string, refs map[string]domain.Reference, attrs map[string]any) domain.RawEntityRecord {
	return domain.RawEntityRecord{Class: class, References: refs, Attributes: attrs}
}

func ref(scope, local string) domain.Reference {
	return domain.Reference{Scope: scope, LocalID: local}
}

func discover(t *testing.T, p *profile.Profile, provider cim.QueryProvider) *domain.Topology {
	t.Helper()
	b := NewBuilder(WithLogger(testLogger()))
	topo, _, err := b.Discover(context.Background(), provider, p, NewFragmentSink("test"), "test")
	require.NoError(t, err)
	return topo
}

// edgeBetween reports whether an edge of kind joins the nodes with the given keys
func edgeBetween(topo *domain.Topology, kind domain.EdgeType, fromType domain.NodeType, from domain.Reference, toType domain.NodeType, to domain.Reference) bool {
	f, ok := topo.NodeByKey(fromType, from)
	if !ok {
		return false
	}
	tn, ok := topo.NodeByKey(toType, to)
	if !ok {
		return false
	}
	for _, e := range topo.EdgesOfKind(kind) {
		if e.From == f.Handle && e.To == tn.Handle {
			return true
		}
	}
	return false
}

func arrayRecord(name string) domain.RawEntityRecord {
	return entity("CIM_StorageSystem", map[string]any{"Name": name, "ElementName": name})
}

func extentRecord(system, id string) domain.RawEntityRecord {
	return entity("CIM_StorageExtent", map[string]any{
		"SystemName": system, "DeviceID": id, "BlockSize": "512", "NumberOfBlocks": "2048",
	})
}

func volumeRecord(system, id string) domain.RawEntityRecord {
	return entity("CIM_StorageVolume", map[string]any{
		"SystemName": system, "DeviceID": id, "Name": id, "BlockSize": "512", "NumberOfBlocks": "4096",
	})
}

func poolRecord(instanceID string) domain.RawEntityRecord {
	return entity("CIM_StoragePool", map[string]any{
		"InstanceID": instanceID, "PoolID": instanceID, "TotalManagedSpace": "1000", "RemainingManagedSpace": "400",
	})
}

func allocated(pool, dependent domain.Reference) domain.RawEntityRecord {
	return assoc("CIM_AllocatedFromStoragePool", map[string]domain.Reference{
		"Antecedent": pool, "Dependent": dependent,
	}, nil)
}

func TestDiscoverPoolUsage(t *testing.T) {
	provider := cim.NewStaticProvider().
		Add("CIM_StorageSystem", arrayRecord("sysA")).
		Add("CIM_StoragePool", poolRecord("sysA+pool0")).
		Add("CIM_StorageExtent", extentRecord("sysA", "d1"), extentRecord("sysA", "d2")).
		Add("CIM_AllocatedFromStoragePool",
			allocated(ref("sysA+", "pool0"), ref("sysA", "d1")),
			allocated(ref("sysA+", "pool0"), ref("sysA", "d2")))

	topo := discover(t, profile.Generic(), provider)

	assert.Len(t, topo.NodesOfType(domain.NodeTypeStorageArray), 1)
	assert.Len(t, topo.NodesOfType(domain.NodeTypeStoragePool), 1)
	assert.Len(t, topo.NodesOfType(domain.NodeTypePhysicalVolume), 2)
	assert.Len(t, topo.EdgesOfKind(domain.EdgeTypeUsage), 2)
	assert.Zero(t, topo.Stats.DroppedEdges)
	assert.Zero(t, topo.Stats.SkippedRecords)

	// "sysA+" owner resolves to "sysA" through the trailing-character retry
	assert.True(t, edgeBetween(topo, domain.EdgeTypeContainment,
		domain.NodeTypeStorageArray, domain.SystemRef("sysA"),
		domain.NodeTypeStoragePool, ref("sysA+", "pool0")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeUsage,
		domain.NodeTypeStoragePool, ref("sysA+", "pool0"),
		domain.NodeTypePhysicalVolume, ref("sysA", "d2")))
}

func TestDiscoverArrayQueryFails(t *testing.T) {
	provider := cim.NewStaticProvider().
		Fail("CIM_StorageSystem", errors.New("connection reset")).
		Add("CIM_StoragePool", poolRecord("sysA+pool0"))

	topo := discover(t, profile.Generic(), provider)

	assert.Empty(t, topo.NodesOfType(domain.NodeTypeStorageArray))
	require.Len(t, topo.NodesOfType(domain.NodeTypeStoragePool), 1)
	assert.Empty(t, topo.EdgesOfKind(domain.EdgeTypeContainment))
	assert.Equal(t, 1, topo.Stats.FailedQueries)
	assert.Positive(t, topo.Stats.Queries)
}

func TestDiscoverIdempotentIdentity(t *testing.T) {
	provider := cim.NewStaticProvider().
		Add("CIM_StorageSystem", arrayRecord("sysA"), arrayRecord("sysA")).
		Add("CIM_StoragePool", poolRecord("sysA+pool0"), poolRecord("sysA+pool0"))

	topo := discover(t, profile.Generic(), provider)

	assert.Len(t, topo.NodesOfType(domain.NodeTypeStorageArray), 1)
	assert.Len(t, topo.NodesOfType(domain.NodeTypeStoragePool), 1)
	assert.Len(t, topo.EdgesOfKind(domain.EdgeTypeContainment), 1)
}

func TestDiscoverExtentsSkipLogicalVolumes(t *testing.T) {
	// deep enumeration of the extent class also returns the volume subclass
	asExtent := volumeRecord("sysA", "vol1")
	renamed := volumeRecord("sysA", "vol1")
	renamed.Class = "CIM_StorageExtent"

	tests := []struct {
		name   string
		extent domain.RawEntityRecord
	}{
		{"concrete volume class", asExtent},
		{"same key under the extent class", renamed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := cim.NewStaticProvider().
				Add("CIM_StorageSystem", arrayRecord("sysA")).
				Add("CIM_StoragePool", poolRecord("sysA+pool0")).
				Add("CIM_StorageExtent", extentRecord("sysA", "d1"), tt.extent).
				Add("CIM_StorageVolume", volumeRecord("sysA", "vol1")).
				Add("CIM_AllocatedFromStoragePool",
					allocated(ref("sysA+", "pool0"), ref("sysA", "d1")),
					allocated(ref("sysA+", "pool0"), ref("sysA", "vol1")))

			topo := discover(t, profile.Generic(), provider)

			var types []domain.NodeType
			for _, n := range topo.Nodes {
				if n.Key == ref("sysA", "vol1") {
					types = append(types, n.Type)
				}
			}
			assert.Equal(t, []domain.NodeType{domain.NodeTypeLogicalVolume}, types)

			physical := topo.NodesOfType(domain.NodeTypePhysicalVolume)
			require.Len(t, physical, 1)
			assert.Equal(t, ref("sysA", "d1"), physical[0].Key)
			assert.Len(t, topo.EdgesOfKind(domain.EdgeTypeUsage), 1)
			assert.Len(t, topo.EdgesOfKind(domain.EdgeTypeMembership), 1)
			assert.Zero(t, topo.Stats.SkippedRecords)
		})
	}
}

func TestDiscoverRejectsSecondTypeForIdentity(t *testing.T) {
	provider := cim.NewStaticProvider().
		Add("CIM_StorageSystem", arrayRecord("sysA")).
		Add("CIM_StorageProcessorSystem", entity("CIM_StorageProcessorSystem", map[string]any{"Name": "sysA"}))

	topo := discover(t, profile.Generic(), provider)

	require.Len(t, topo.Nodes, 1)
	assert.Equal(t, domain.NodeTypeStorageArray, topo.Nodes[0].Type)
	assert.Equal(t, 1, topo.Stats.SkippedRecords)
}

func TestDiscoverRejectsInvalidPortWWN(t *testing.T) {
	provider := cim.NewStaticProvider().
		Add("CIM_StorageSystem", arrayRecord("sysA")).
		Add("CIM_FCPort",
			entity("CIM_FCPort", map[string]any{"SystemName": "sysA", "DeviceID": "p1", "PermanentAddress": "500507680140A1B2"}),
			entity("CIM_FCPort", map[string]any{"SystemName": "sysA", "DeviceID": "p2", "PermanentAddress": "not-a-wwn"}))

	topo := discover(t, profile.Generic(), provider)

	ports := topo.NodesOfType(domain.NodeTypeFCPort)
	require.Len(t, ports, 1)
	assert.Equal(t, "50:05:07:68:01:40:a1:b2", ports[0].Attributes["wwn"])
	assert.Equal(t, 1, topo.Stats.SkippedRecords)
}

func TestDiscoverMissingAllocationAssociation(t *testing.T) {
	provider := cim.NewStaticProvider().
		Add("CIM_StorageSystem", arrayRecord("sysA")).
		Add("CIM_StoragePool", poolRecord("sysA+pool0")).
		Add("CIM_StorageVolume", volumeRecord("sysA", "vol1"))

	topo := discover(t, profile.Generic(), provider)

	assert.Len(t, topo.NodesOfType(domain.NodeTypeStoragePool), 1)
	assert.Len(t, topo.NodesOfType(domain.NodeTypeLogicalVolume), 1)
	assert.Empty(t, topo.EdgesOfKind(domain.EdgeTypeMembership))
}

func TestDiscoverVolumeChain(t *testing.T) {
	provider := cim.NewStaticProvider().
		Add("CIM_StorageSystem", arrayRecord("nas1")).
		Add("CIM_StoragePool", poolRecord("nas1+pool0")).
		Add("CIM_StorageExtent", extentRecord("nas1", "d1")).
		Add("CIM_StorageVolume", volumeRecord("nas1", "vol1")).
		Add("CIM_AllocatedFromStoragePool",
			allocated(ref("nas1+", "pool0"), ref("nas1", "d1")),
			allocated(ref("nas1+", "pool0"), ref("nas1", "vol1")),
			allocated(ref("nas1+", "pool0"), ref("nas1", "ghost"))).
		Add("CIM_BasedOn", assoc("CIM_BasedOn", map[string]domain.Reference{
			"Antecedent": ref("nas1", "d1"), "Dependent": ref("nas1", "vol1"),
		}, nil)).
		Add("CIM_LocalFileSystem", entity("CIM_LocalFileSystem", map[string]any{
			"CSName": "nas1", "Name": "fs1", "FileSystemSize": "100", "AvailableSpace": "50",
		})).
		Add("CIM_ResidesOnExtent", assoc("CIM_ResidesOnExtent", map[string]domain.Reference{
			"Antecedent": ref("nas1", "vol1"), "Dependent": ref("nas1", "fs1"),
		}, nil)).
		Add("CIM_FileShare",
			entity("CIM_FileShare", map[string]any{"InstanceID": "nas1+share1", "Name": "/export/fs1", "Protocol": "NFS"}),
			entity("CIM_FileShare", map[string]any{"InstanceID": "nas9+share2", "Name": "/export/orphan"})).
		Add("CIM_SharedElement", assoc("CIM_SharedElement", map[string]domain.Reference{
			"SameElement": ref("nas1+", "share1"), "SystemElement": ref("nas1", "fs1"),
		}, nil))

	topo := discover(t, profile.Generic(), provider)

	pool := ref("nas1+", "pool0")
	assert.True(t, edgeBetween(topo, domain.EdgeTypeUsage,
		domain.NodeTypeStoragePool, pool, domain.NodeTypePhysicalVolume, ref("nas1", "d1")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeMembership,
		domain.NodeTypeStoragePool, pool, domain.NodeTypeLogicalVolume, ref("nas1", "vol1")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeDependency,
		domain.NodeTypeLogicalVolume, ref("nas1", "vol1"), domain.NodeTypePhysicalVolume, ref("nas1", "d1")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeDependency,
		domain.NodeTypeFileSystem, ref("nas1", "fs1"), domain.NodeTypeLogicalVolume, ref("nas1", "vol1")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeRealization,
		domain.NodeTypeFileShare, ref("nas1+", "share1"), domain.NodeTypeFileSystem, ref("nas1", "fs1")))

	// the share on an unknown host is dropped rather than attached to nas1
	shares := topo.NodesOfType(domain.NodeTypeFileShare)
	require.Len(t, shares, 1)
	assert.Equal(t, ref("nas1+", "share1"), shares[0].Key)

	// only the allocation to an unknown volume is dropped
	assert.Equal(t, 1, topo.Stats.DroppedEdges)
	assert.Equal(t, 1, topo.Stats.SkippedRecords)
}

func TestDiscoverOwnerFallback(t *testing.T) {
	tests := []struct {
		name          string
		arrays        []domain.RawEntityRecord
		wantContained bool
	}{
		{"single array adopts orphans", []domain.RawEntityRecord{arrayRecord("sysA")}, true},
		{"several arrays leave orphans at root", []domain.RawEntityRecord{arrayRecord("sysA"), arrayRecord("sysB")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := cim.NewStaticProvider().
				Add("CIM_StorageSystem", tt.arrays...).
				Add("CIM_StorageExtent", extentRecord("sysZ", "d1"))

			topo := discover(t, profile.Generic(), provider)

			require.Len(t, topo.NodesOfType(domain.NodeTypePhysicalVolume), 1)
			assert.Equal(t, tt.wantContained, edgeBetween(topo, domain.EdgeTypeContainment,
				domain.NodeTypeStorageArray, domain.SystemRef("sysA"),
				domain.NodeTypePhysicalVolume, ref("sysZ", "d1")))
		})
	}
}

func TestDiscoverProcessorsAndPorts(t *testing.T) {
	provider := cim.NewStaticProvider().
		Add("CIM_StorageSystem", arrayRecord("sysA")).
		Add("CIM_StorageProcessorSystem", entity("CIM_StorageProcessorSystem", map[string]any{
			"Name": "spA", "SystemName": "sysA",
		})).
		Add("CIM_FCPort", entity("CIM_FCPort", map[string]any{
			"SystemName": "sysA", "DeviceID": "p1", "PermanentAddress": "500507680140A1B2",
		})).
		Add("CIM_SystemDevice",
			assoc("CIM_SystemDevice", map[string]domain.Reference{
				"GroupComponent": domain.SystemRef("spA"), "PartComponent": ref("sysA", "p1"),
			}, nil),
			assoc("CIM_SystemDevice", map[string]domain.Reference{
				"GroupComponent": domain.SystemRef("sysA"), "PartComponent": ref("sysA", "p1"),
			}, nil)).
		Add("CIM_RemoteServiceAccessPoint", entity("CIM_RemoteServiceAccessPoint", map[string]any{
			"SystemName": "sysA", "Name": "rsap1", "AccessInfo": "10000000C9A1B2C3",
		})).
		Add("CIM_DeviceSAPImplementation", assoc("CIM_DeviceSAPImplementation", map[string]domain.Reference{
			"Antecedent": ref("sysA", "p1"), "Dependent": ref("sysA", "rsap1"),
		}, nil))

	topo := discover(t, profile.Generic(), provider)

	assert.True(t, edgeBetween(topo, domain.EdgeTypeContainment,
		domain.NodeTypeStorageArray, domain.SystemRef("sysA"), domain.NodeTypeStorageProcessor, domain.SystemRef("spA")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeContainment,
		domain.NodeTypeStorageProcessor, domain.SystemRef("spA"), domain.NodeTypeFCPort, ref("sysA", "p1")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeFCConnect,
		domain.NodeTypeFCPort, ref("sysA", "p1"), domain.NodeTypeRemoteEndpoint, ref("sysA", "rsap1")))
	assert.Zero(t, topo.Stats.DroppedEdges)
}

func TestDiscoverIBMSVC(t *testing.T) {
	provider := cim.NewStaticProvider().
		Add("IBMTSSVC_Cluster", entity("IBMTSSVC_Cluster", map[string]any{
			"Name": "0000020060C0B2D4", "ElementName": "svc1", "CodeLevel": "8.5.0.0",
		})).
		Add("IBMTSSVC_Node", entity("IBMTSSVC_Node", map[string]any{
			"Name": "node1", "IOGroupID": "io_grp0", "WWNN": "500507680100A1B2",
		})).
		Add("IBMTSSVC_ComponentCS", assoc("IBMTSSVC_ComponentCS", map[string]domain.Reference{
			"GroupComponent": domain.SystemRef("0000020060C0B2D4"), "PartComponent": domain.SystemRef("node1"),
		}, nil)).
		Add("IBMTSSVC_IOGroup", entity("IBMTSSVC_IOGroup", map[string]any{
			"InstanceID": "0000020060C0B2D4+io_grp0", "Name": "io_grp0",
		})).
		Add("IBMTSSVC_ConcreteStoragePool",
			entity("IBMTSSVC_ConcreteStoragePool", map[string]any{"InstanceID": "0000020060C0B2D4+parent", "TotalManagedSpace": "10"}),
			entity("IBMTSSVC_ConcreteStoragePool", map[string]any{"InstanceID": "0000020060C0B2D4+child", "TotalManagedSpace": "5"})).
		Add("IBMTSSVC_ChildPool", assoc("IBMTSSVC_ChildPool", map[string]domain.Reference{
			"Parent": ref("0000020060C0B2D4+", "parent"), "Child": ref("0000020060C0B2D4+", "child"),
		}, nil))

	topo := discover(t, profile.IBMSVC(), provider)

	cluster := domain.SystemRef("0000020060C0B2D4")
	arrays := topo.NodesOfType(domain.NodeTypeStorageArray)
	require.Len(t, arrays, 1)
	assert.Equal(t, "IBM", arrays[0].Attributes["vendor"])
	assert.Equal(t, "8.5.0.0", arrays[0].Attributes["version"])

	assert.True(t, edgeBetween(topo, domain.EdgeTypeContainment,
		domain.NodeTypeStorageArray, cluster, domain.NodeTypeStorageProcessor, domain.SystemRef("node1")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeMembership,
		domain.NodeTypeIOGroup, ref("0000020060C0B2D4+", "io_grp0"), domain.NodeTypeStorageProcessor, domain.SystemRef("node1")))
	assert.True(t, edgeBetween(topo, domain.EdgeTypeMembership,
		domain.NodeTypeStoragePool, ref("0000020060C0B2D4+", "parent"), domain.NodeTypeStoragePool, ref("0000020060C0B2D4+", "child")))
}

func TestBuildConfigurationErrors(t *testing.T) {
	noArray := profile.Generic()
	delete(noArray.Entities, profile.EntityArray)
	snap := cim.NewSnapshot("t")
	sink := NewFragmentSink("t")

	tests := []struct {
		name    string
		snap    *cim.Snapshot
		profile *profile.Profile
		sink    Sink
	}{
		{"nil snapshot", nil, profile.Generic(), sink},
		{"nil sink", snap, profile.Generic(), nil},
		{"nil profile", snap, nil, sink},
		{"profile without array class", snap, noArray, sink},
	}

	b := NewBuilder(WithLogger(testLogger()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(context.Background(), tt.snap, tt.profile, tt.sink)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestBuildCancelled(t *testing.T) {
	snap := cim.NewSnapshot("t")
	snap.Add(cim.QueryResult{Class: "CIM_StorageSystem", Records: []domain.RawEntityRecord{arrayRecord("sysA")}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	topo, err := NewBuilder(WithLogger(testLogger())).Build(ctx, snap, profile.Generic(), NewFragmentSink("t"))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, topo)
	assert.Empty(t, topo.Nodes)
}

func TestBuildFromSnapshot(t *testing.T) {
	snap := cim.NewSnapshot("replay")
	snap.Add(cim.QueryResult{Class: "CIM_StorageSystem", Records: []domain.RawEntityRecord{arrayRecord("sysA")}})
	snap.Add(cim.QueryResult{Class: "CIM_StorageExtent", Records: []domain.RawEntityRecord{extentRecord("sysA", "d1")}})

	sink := NewFragmentSink("replay")
	topo, err := NewBuilder(WithLogger(testLogger())).Build(context.Background(), snap, profile.Generic(), sink)
	require.NoError(t, err)

	frag := sink.Fragment()
	assert.Len(t, frag.Nodes, len(topo.Nodes))
	assert.Len(t, frag.Edges, len(topo.Edges))
	for _, n := range topo.Nodes {
		node, ok := frag.NodeByID(string(n.Handle))
		require.True(t, ok)
		assert.Equal(t, "replay", node.Source)
	}
}

func TestPhaseOrder(t *testing.T) {
	order := PhaseOrder()
	require.NotEmpty(t, order)
	assert.Equal(t, "arrays", order[0])
	assert.Equal(t, "masking", order[len(order)-1])

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["pools"], pos["pool_edges"])
	assert.Less(t, pos["physical_volumes"], pos["pool_edges"])
	assert.Less(t, pos["pool_edges"], pos["logical_volumes"])
	assert.Less(t, pos["file_systems"], pos["file_shares"])
}
