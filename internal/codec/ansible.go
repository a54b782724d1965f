package codec

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"smiscope/internal/domain"
)

// AnsibleCodec exports discovered arrays as an Ansible inventory so storage
// playbooks can target what discovery found. Import is not supported.
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]map[string]any `yaml:"hosts,omitempty"`
}

var groupNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// groupName turns a vendor into a valid inventory group name
func groupName(vendor string) string {
	g := groupNameSanitizer.ReplaceAllString(strings.ToLower(vendor), "_")
	g = strings.Trim(g, "_")
	if g == "" {
		return "storage_arrays"
	}
	return g + "_arrays"
}

// Export writes one host per storage array, grouped by vendor. Host vars
// carry the array properties, the discovery target and per-type component counts.
func (c *AnsibleCodec) Export(fragment *domain.GraphFragment, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
		},
	}

	// Count components per array through containment edges
	counts := make(map[string]map[string]int)
	for _, edge := range fragment.Edges {
		if edge.Type != domain.EdgeTypeContainment {
			continue
		}
		child, ok := fragment.NodeByID(edge.ToID)
		if !ok {
			continue
		}
		if counts[edge.FromID] == nil {
			counts[edge.FromID] = make(map[string]int)
		}
		counts[edge.FromID][string(child.Type)]++
	}

	for _, node := range fragment.NodesOfType(domain.NodeTypeStorageArray) {
		group := groupName(node.GetPropertyString("vendor"))
		def, ok := inv.All.Children[group]
		if !ok {
			def = ansibleGroupDef{Hosts: make(map[string]map[string]any)}
		}

		vars := make(map[string]any)
		for key, value := range node.Properties {
			if key == "label" {
				continue
			}
			vars["storage_"+key] = value
		}
		if node.Source != "" {
			vars["smiscope_target"] = node.Source
		}
		for nodeType, n := range counts[node.ID] {
			vars["storage_"+nodeType+"_count"] = n
		}

		def.Hosts[node.Label] = vars
		inv.All.Children[group] = def
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}
