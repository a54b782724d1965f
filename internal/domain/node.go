package domain

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// NodeType represents the type of storage topology node
type NodeType string

const (
	NodeTypeStorageArray     NodeType = "storage_array"
	NodeTypeStorageProcessor NodeType = "storage_processor"
	NodeTypeIOGroup          NodeType = "io_group"
	NodeTypeRemoteEndpoint   NodeType = "remote_endpoint"
	NodeTypeFCPort           NodeType = "fc_port"
	NodeTypeHostAdapter      NodeType = "host_adapter"
	NodeTypePhysicalVolume   NodeType = "physical_volume"
	NodeTypeStoragePool      NodeType = "storage_pool"
	NodeTypeLogicalVolume    NodeType = "logical_volume"
	NodeTypeFileSystem       NodeType = "file_system"
	NodeTypeFileShare        NodeType = "file_share"
	NodeTypeLUN              NodeType = "lun"
	NodeTypeProtocolEndpoint NodeType = "protocol_endpoint" // local target port seen only through masking
)

// Handle is the opaque value an entity sink returns for a created node
type Handle string

// Node is the persisted/exported form of a resolved topology node
type Node struct {
	ID         string         `json:"id"`
	Type       NodeType       `json:"type"`
	Key        Reference      `json:"key"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
	Source     string         `json:"source,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	LastSeen   *time.Time     `json:"last_seen,omitempty"`
}

// NewNode creates a new node whose ID is derived from its type and identity key
func NewNode(nodeType NodeType, key Reference, label string) *Node {
	now := time.Now()
	return &Node{
		ID:         NodeID(nodeType, key),
		Type:       nodeType,
		Key:        key,
		Label:      label,
		Properties: make(map[string]any),
		CreatedAt:  now,
		UpdatedAt:  now,
		LastSeen:   &now,
	}
}

// NodeID creates a deterministic ID for a node so repeated runs upsert the same row
func NodeID(nodeType NodeType, key Reference) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", nodeType, key.Scope, key.LocalID)))
	return fmt.Sprintf("%x", hash[:8])
}

// SetProperty sets a property value
func (n *Node) SetProperty(key string, value any) {
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[key] = value
}

// GetProperty gets a property value
func (n *Node) GetProperty(key string) (any, bool) {
	if n.Properties == nil {
		return nil, false
	}
	val, ok := n.Properties[key]
	return val, ok
}

// GetPropertyString gets a property as a string
func (n *Node) GetPropertyString(key string) string {
	val, ok := n.GetProperty(key)
	if !ok {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// ResolvedNode is a node created during one discovery run
type ResolvedNode struct {
	Key        Reference      `json:"key"`
	Type       NodeType       `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Handle     Handle         `json:"handle"`
}
