// Package profile describes how a vendor's CIM model maps onto the storage
// topology: which concrete class backs each abstract entity, which association
// class links two entities and in which roles, and optional per-entity parse
// overrides. The topology builder's orchestration never changes per vendor.
package profile

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoArrayClass is returned for profiles that cannot discover arrays
var ErrNoArrayClass = errors.New("profile has no array class")

// EntityClass names an abstract entity queried during discovery
type EntityClass string

const (
	EntityArray          EntityClass = "array"
	EntityProcessor      EntityClass = "processor"
	EntityIOGroup        EntityClass = "io_group"
	EntityRemoteEndpoint EntityClass = "remote_endpoint"
	EntityPort           EntityClass = "port"
	EntityHostAdapter    EntityClass = "host_adapter"
	EntityPhysicalVolume EntityClass = "physical_volume"
	EntityPool           EntityClass = "pool"
	EntityLogicalVolume  EntityClass = "logical_volume"
	EntityFileSystem     EntityClass = "file_system"
	EntityFileShare      EntityClass = "file_share"
	EntityHardwareID     EntityClass = "hardware_id"
)

// AssociationClass names an abstract relationship between two entities.
// The comment on each gives source -> target.
type AssociationClass string

const (
	AssocProcessorOwnership    AssociationClass = "processor_ownership"     // array -> processor
	AssocIOGroupMember         AssociationClass = "io_group_member"         // io group -> processor
	AssocProcessorPort         AssociationClass = "processor_port"          // processor -> port
	AssocAdapterPort           AssociationClass = "adapter_port"            // host adapter -> port
	AssocPoolHierarchy         AssociationClass = "pool_hierarchy"          // parent pool -> child pool
	AssocPoolComponent         AssociationClass = "pool_component"          // pool -> physical volume
	AssocPoolAllocation        AssociationClass = "pool_allocation"         // pool -> volume
	AssocVolumeExtent          AssociationClass = "volume_extent"           // logical volume -> physical volume
	AssocFileSystemVolume      AssociationClass = "file_system_volume"      // file system -> logical volume
	AssocShareFileSystem       AssociationClass = "share_file_system"       // file share -> file system
	AssocEndpointLink          AssociationClass = "endpoint_link"           // port -> remote endpoint
	AssocControllerUnit        AssociationClass = "controller_unit"         // protocol controller -> logical volume
	AssocAuthorizedSubject     AssociationClass = "authorized_subject"      // privilege -> hardware id
	AssocAuthorizedTarget      AssociationClass = "authorized_target"       // privilege -> protocol controller
	AssocControllerAccessPoint AssociationClass = "controller_access_point" // protocol controller -> local access point
)

// AssociationSpec is the concrete class and roles behind an AssociationClass
type AssociationSpec struct {
	Class      string `yaml:"class" json:"class"`
	SourceRole string `yaml:"source_role" json:"source_role"`
	TargetRole string `yaml:"target_role" json:"target_role"`
}

// Profile is one vendor's class-name mapping plus parse overrides
type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Vendor is matched against the class prefix of registered profiles during detection
	Vendor string `yaml:"vendor,omitempty" json:"vendor,omitempty"`
	// Versions is a semver constraint on the registered SMI-S Array profile version
	Versions string `yaml:"versions,omitempty" json:"versions,omitempty"`
	// Namespace is the default CIM namespace for this vendor
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	Entities     map[EntityClass]string               `yaml:"entities" json:"entities"`
	Associations map[AssociationClass]AssociationSpec `yaml:"associations" json:"associations"`

	Parsers Parsers `yaml:"-" json:"-"`
}

// Entity returns the concrete class for an entity; "" when the vendor has none
func (p *Profile) Entity(e EntityClass) string {
	if p == nil {
		return ""
	}
	return p.Entities[e]
}

// Association returns the query for an association; ok is false when the vendor has none
func (p *Profile) Association(a AssociationClass) (AssociationSpec, bool) {
	if p == nil {
		return AssociationSpec{}, false
	}
	spec, ok := p.Associations[a]
	if !ok || spec.Class == "" {
		return AssociationSpec{}, false
	}
	return spec, true
}

// Classes returns every concrete class the profile queries, sorted and unique
func (p *Profile) Classes() []string {
	seen := make(map[string]struct{})
	for _, c := range p.Entities {
		if c != "" {
			seen[c] = struct{}{}
		}
	}
	for _, a := range p.Associations {
		if a.Class != "" {
			seen[a.Class] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Validate checks the profile can drive a discovery run
func (p *Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.Entity(EntityArray) == "" {
		return fmt.Errorf("profile %s: %w", p.Name, ErrNoArrayClass)
	}
	for name, spec := range p.Associations {
		if spec.Class == "" {
			continue
		}
		if spec.SourceRole == "" || spec.TargetRole == "" {
			return fmt.Errorf("profile %s: association %s needs source_role and target_role", p.Name, name)
		}
	}
	return nil
}

// Clone returns a deep copy; parse overrides are shared
func (p *Profile) Clone() *Profile {
	c := *p
	c.Entities = make(map[EntityClass]string, len(p.Entities))
	for k, v := range p.Entities {
		c.Entities[k] = v
	}
	c.Associations = make(map[AssociationClass]AssociationSpec, len(p.Associations))
	for k, v := range p.Associations {
		c.Associations[k] = v
	}
	return &c
}

// ResolvedParsers returns the profile's overrides with generic parsers filling the gaps
func (p *Profile) ResolvedParsers() Parsers {
	return p.Parsers.Merge(GenericParsers())
}
