package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMissingAttribute is returned when a required attribute is absent or blank
	ErrMissingAttribute = errors.New("missing attribute")
	// ErrInvalidAttribute is returned when an attribute cannot be converted to the expected type
	ErrInvalidAttribute = errors.New("invalid attribute")
)

// Reference points at a managed element inside a raw record.
// Scope is the owning system (or namespace prefix) and LocalID the id within that scope.
// System-level elements carry their own name as Scope and an empty LocalID.
type Reference struct {
	Scope   string `json:"scope" yaml:"scope"`
	LocalID string `json:"local_id,omitempty" yaml:"local_id,omitempty"`
}

// IsZero reports whether the reference points at nothing
func (r Reference) IsZero() bool {
	return r.Scope == "" && r.LocalID == ""
}

// String renders the reference as scope/localID
func (r Reference) String() string {
	if r.LocalID == "" {
		return r.Scope
	}
	return r.Scope + "/" + r.LocalID
}

// SystemRef returns the reference used for a system-level element
func SystemRef(name string) Reference {
	return Reference{Scope: name}
}

// RawEntityRecord is one instance returned by a query provider for a named class.
// Attribute values are strings, numbers or bools as delivered by the provider.
type RawEntityRecord struct {
	Class      string               `json:"class" yaml:"class,omitempty"`
	Scope      string               `json:"scope" yaml:"scope,omitempty"`
	Attributes map[string]any       `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	References map[string]Reference `json:"references,omitempty" yaml:"references,omitempty"`
}

// Has reports whether an attribute is present and non-nil
func (r RawEntityRecord) Has(name string) bool {
	v, ok := r.Attributes[name]
	return ok && v != nil
}

// String returns an attribute rendered as a trimmed string, or "" when absent
func (r RawEntityRecord) String(name string) string {
	v, ok := r.Attributes[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// FirstString returns the first non-blank attribute among names
func (r RawEntityRecord) FirstString(names ...string) string {
	for _, name := range names {
		if s := r.String(name); s != "" {
			return s
		}
	}
	return ""
}

// RequireString returns a non-blank attribute or ErrMissingAttribute
func (r RawEntityRecord) RequireString(name string) (string, error) {
	s := r.String(name)
	if s == "" {
		return "", fmt.Errorf("%s.%s: %w", r.Class, name, ErrMissingAttribute)
	}
	return s, nil
}

// Uint64 returns a numeric attribute. ok is false when the attribute is absent or blank;
// a present value that is not a non-negative integer yields ErrInvalidAttribute.
func (r RawEntityRecord) Uint64(name string) (value uint64, ok bool, err error) {
	v, present := r.Attributes[name]
	if !present || v == nil {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int:
		if val < 0 {
			return 0, false, r.invalid(name, v)
		}
		return uint64(val), true, nil
	case int64:
		if val < 0 {
			return 0, false, r.invalid(name, v)
		}
		return uint64(val), true, nil
	case uint64:
		return val, true, nil
	case uint32:
		return uint64(val), true, nil
	case float64:
		if val < 0 || val != math.Trunc(val) {
			return 0, false, r.invalid(name, v)
		}
		return uint64(val), true, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false, nil
		}
		n, perr := strconv.ParseUint(s, 10, 64)
		if perr != nil {
			return 0, false, r.invalid(name, v)
		}
		return n, true, nil
	default:
		return 0, false, r.invalid(name, v)
	}
}

// Bool returns a boolean attribute; CIM providers deliver "true"/"false" strings
func (r RawEntityRecord) Bool(name string) (value bool, ok bool, err error) {
	v, present := r.Attributes[name]
	if !present || v == nil {
		return false, false, nil
	}
	switch val := v.(type) {
	case bool:
		return val, true, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return false, false, nil
		}
		b, perr := strconv.ParseBool(strings.ToLower(s))
		if perr != nil {
			return false, false, r.invalid(name, v)
		}
		return b, true, nil
	default:
		return false, false, r.invalid(name, v)
	}
}

// Ref returns the reference stored under role, or a zero Reference
func (r RawEntityRecord) Ref(role string) Reference {
	if r.References == nil {
		return Reference{}
	}
	return r.References[role]
}

func (r RawEntityRecord) invalid(name string, v any) error {
	return fmt.Errorf("%s.%s=%v: %w", r.Class, name, v, ErrInvalidAttribute)
}

// AssociationKind says whether a source may carry several targets
type AssociationKind string

const (
	AssociationOneToMany AssociationKind = "one_to_many"
	AssociationOneToOne  AssociationKind = "one_to_one"
)

// AssociationRecord links two references observed through a CIM association class
type AssociationRecord struct {
	Kind       AssociationKind `json:"kind"`
	Source     Reference       `json:"source"`
	Target     Reference       `json:"target"`
	Attributes map[string]any  `json:"attributes,omitempty"`
}

// InstanceRef splits an InstanceID of the form "<system>+<id>" into a reference.
// The scope keeps the '+' delimiter, matching how providers embed it in object
// paths; owner lookups rely on the identity resolver's trailing-character retry.
// An InstanceID without a delimiter becomes an unscoped reference.
func InstanceRef(instanceID string) Reference {
	id := strings.TrimSpace(instanceID)
	if i := strings.LastIndex(id, "+"); i >= 0 {
		return Reference{Scope: id[:i+1], LocalID: id[i+1:]}
	}
	return Reference{LocalID: id}
}

// pathKeys are the key properties that identify an element across classes
var pathKeys = []string{"SystemName", "DeviceID", "Name", "InstanceID", "CSName"}

// PathRef maps CIM object-path key bindings onto a Reference.
//
//   - SystemName + DeviceID/Name/InstanceID: component of a system
//   - CSName + Name: filesystem hosted by a computer system
//   - InstanceID: split by InstanceRef
//   - Name alone: a system itself
func PathRef(keys map[string]string) Reference {
	get := func(k string) string { return strings.TrimSpace(keys[k]) }

	if sys := get("SystemName"); sys != "" {
		local := get("DeviceID")
		if local == "" {
			local = get("Name")
		}
		if local == "" {
			local = get("InstanceID")
		}
		return Reference{Scope: sys, LocalID: local}
	}
	if cs := get("CSName"); cs != "" {
		return Reference{Scope: cs, LocalID: get("Name")}
	}
	if id := get("InstanceID"); id != "" {
		return InstanceRef(id)
	}
	if name := get("Name"); name != "" {
		return SystemRef(name)
	}
	return Reference{}
}

// PathRef derives the record's own identity from its key properties
func (r RawEntityRecord) PathRef() Reference {
	keys := make(map[string]string, len(pathKeys))
	for _, k := range pathKeys {
		keys[k] = r.String(k)
	}
	return PathRef(keys)
}
