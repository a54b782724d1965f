package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	t.Run("creates node with defaults", func(t *testing.T) {
		key := Reference{Scope: "sysA", LocalID: "dev7"}
		node := NewNode(NodeTypeLogicalVolume, key, "vol7")

		assert.Equal(t, NodeID(NodeTypeLogicalVolume, key), node.ID)
		assert.Equal(t, NodeTypeLogicalVolume, node.Type)
		assert.Equal(t, key, node.Key)
		assert.Equal(t, "vol7", node.Label)
		assert.NotNil(t, node.Properties)
		assert.False(t, node.CreatedAt.IsZero())
		require.NotNil(t, node.LastSeen)
	})
}

func TestNodeID(t *testing.T) {
	key := Reference{Scope: "sysA", LocalID: "dev7"}

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, NodeID(NodeTypeLogicalVolume, key), NodeID(NodeTypeLogicalVolume, key))
	})

	t.Run("differs by type", func(t *testing.T) {
		assert.NotEqual(t, NodeID(NodeTypeLogicalVolume, key), NodeID(NodeTypePhysicalVolume, key))
	})
}

func TestNodeSetGetProperty(t *testing.T) {
	node := NewNode(NodeTypeFCPort, Reference{Scope: "sysA", LocalID: "p1"}, "p1")

	t.Run("set and get string property", func(t *testing.T) {
		node.SetProperty("wwn", "50:05:07:68:01:40:a1:b2")
		val, ok := node.GetProperty("wwn")
		require.True(t, ok)
		assert.Equal(t, "50:05:07:68:01:40:a1:b2", val)
		assert.Equal(t, "50:05:07:68:01:40:a1:b2", node.GetPropertyString("wwn"))
	})

	t.Run("non-string property reads as empty string", func(t *testing.T) {
		node.SetProperty("speed_bps", uint64(8000000000))
		assert.Empty(t, node.GetPropertyString("speed_bps"))
	})

	t.Run("get non-existent property", func(t *testing.T) {
		_, ok := node.GetProperty("nonexistent")
		assert.False(t, ok)
	})

	t.Run("set property on nil map initializes map", func(t *testing.T) {
		n := &Node{}
		n.SetProperty("key", "value")
		assert.NotNil(t, n.Properties)
	})
}
