package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"smiscope/internal/domain"
)

func sampleFragment() *domain.GraphFragment {
	frag := domain.NewGraphFragment("array-a")
	array := domain.NewNode(domain.NodeTypeStorageArray, domain.SystemRef("sysA"), "Array A")
	array.Source = "array-a"
	array.SetProperty("vendor", "IBM Corp.")
	array.SetProperty("model", "FlashSystem")
	pool := domain.NewNode(domain.NodeTypeStoragePool, domain.Reference{Scope: "sysA+", LocalID: "pool0"}, "pool0")
	pool.Source = "array-a"
	vol := domain.NewNode(domain.NodeTypeLogicalVolume, domain.Reference{Scope: "sysA", LocalID: "vol1"}, "vol1")
	vol.Source = "array-a"
	frag.AddNode(*array)
	frag.AddNode(*pool)
	frag.AddNode(*vol)
	frag.AddEdge(*domain.NewEdge(array.ID, pool.ID, domain.EdgeTypeContainment))
	frag.AddEdge(*domain.NewEdge(array.ID, vol.ID, domain.EdgeTypeContainment))
	frag.AddEdge(*domain.NewEdge(pool.ID, vol.ID, domain.EdgeTypeMembership))
	return frag
}

func TestJSONRoundTrip(t *testing.T) {
	c := NewJSONCodec()
	var buf bytes.Buffer
	require.NoError(t, c.Export(sampleFragment(), &buf))

	frag, err := c.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, "array-a", frag.Source)
	require.Len(t, frag.Nodes, 3)
	assert.Equal(t, domain.Reference{Scope: "sysA+", LocalID: "pool0"}, frag.Nodes[1].Key)
	assert.Len(t, frag.Edges, 3)
}

func TestJSONParseDerivesIDs(t *testing.T) {
	body := `{"source":"lab","nodes":[{"type":"storage_array","key":{"scope":"sysB"},"label":"B"}],
"edges":[{"from_id":"a","to_id":"b","type":"usage"}]}`

	frag, err := NewJSONCodec().Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID(domain.NodeTypeStorageArray, domain.Reference{Scope: "sysB"}), frag.Nodes[0].ID)
	assert.NotNil(t, frag.Nodes[0].Properties)
	assert.Equal(t, domain.NewEdge("a", "b", domain.EdgeTypeUsage).ID, frag.Edges[0].ID)

	_, err = NewJSONCodec().Parse(strings.NewReader(`{"nodes":[{"label":"typeless"}]}`))
	assert.ErrorContains(t, err, "missing type")
}

func TestYAMLRoundTrip(t *testing.T) {
	c := NewYAMLCodec()
	orig := sampleFragment()
	var buf bytes.Buffer
	require.NoError(t, c.Export(orig, &buf))

	frag, err := c.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, orig.Source, frag.Source)
	require.Len(t, frag.Nodes, len(orig.Nodes))
	for i := range orig.Nodes {
		assert.Equal(t, orig.Nodes[i].ID, frag.Nodes[i].ID)
		assert.Equal(t, orig.Nodes[i].Key, frag.Nodes[i].Key)
	}
	assert.Equal(t, orig.Edges[2].ID, frag.Edges[2].ID)
}

func TestYAMLParseDerivesIDs(t *testing.T) {
	doc := `
nodes:
  - type: storage_array
    scope: sysA
    label: Array A
  - type: storage_pool
    scope: sysA+
    local_id: pool0
    label: pool0
edges:
  - from_id: a
    to_id: b
    type: containment
`
	frag, err := NewYAMLCodec().Parse(bytes.NewBufferString(doc))
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID(domain.NodeTypeStorageArray, domain.SystemRef("sysA")), frag.Nodes[0].ID)
	assert.Equal(t, domain.NewEdge("a", "b", domain.EdgeTypeContainment).ID, frag.Edges[0].ID)
	assert.NotNil(t, frag.Nodes[1].Properties)
}

func TestAnsibleExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewAnsibleCodec().Export(sampleFragment(), &buf))

	var inv struct {
		All struct {
			Children map[string]struct {
				Hosts map[string]map[string]any `yaml:"hosts"`
			} `yaml:"children"`
		} `yaml:"all"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &inv))

	group, ok := inv.All.Children["ibm_corp_arrays"]
	require.True(t, ok, "groups are named after the vendor")
	host, ok := group.Hosts["Array A"]
	require.True(t, ok)
	assert.Equal(t, "FlashSystem", host["storage_model"])
	assert.Equal(t, "array-a", host["smiscope_target"])
	assert.Equal(t, 1, host["storage_storage_pool_count"])
	assert.Equal(t, 1, host["storage_logical_volume_count"])
}

func TestGroupName(t *testing.T) {
	tests := []struct {
		vendor string
		want   string
	}{
		{"IBM", "ibm_arrays"},
		{"Dell EMC", "dell_emc_arrays"},
		{"", "storage_arrays"},
		{"--", "storage_arrays"},
	}
	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			assert.Equal(t, tt.want, groupName(tt.vendor))
		})
	}
}

func TestExporterFor(t *testing.T) {
	for _, f := range Formats() {
		e, err := ExporterFor(f)
		require.NoError(t, err)
		assert.Equal(t, f, e.Format())
	}
	_, err := ExporterFor("xml")
	assert.Error(t, err)
}

func TestImporterFor(t *testing.T) {
	for _, f := range []string{"json", "yaml"} {
		i, err := ImporterFor(f)
		require.NoError(t, err)
		assert.Equal(t, f, i.Format())
	}
	_, err := ImporterFor("ansible-inventory")
	assert.Error(t, err)
}
