package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"smiscope/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports graph data from JSON. Like YAML, missing node ids are
// derived from type and key and missing edge ids from the endpoints.
func (c *JSONCodec) Parse(r io.Reader) (*domain.GraphFragment, error) {
	var fragment domain.GraphFragment
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&fragment); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	for i := range fragment.Nodes {
		n := &fragment.Nodes[i]
		if n.Type == "" {
			return nil, fmt.Errorf("node %d: missing type", i)
		}
		if n.ID == "" {
			n.ID = domain.NodeID(n.Type, n.Key)
		}
		if n.Properties == nil {
			n.Properties = make(map[string]any)
		}
	}
	for i := range fragment.Edges {
		e := &fragment.Edges[i]
		if e.ID == "" {
			e.ID = e.GenerateID()
		}
		if e.Properties == nil {
			e.Properties = make(map[string]any)
		}
	}

	return &fragment, nil
}

// Export exports graph data to JSON
func (c *JSONCodec) Export(fragment *domain.GraphFragment, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fragment); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
