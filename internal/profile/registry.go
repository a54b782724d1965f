package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// ErrNoProfile is returned when no registered profile matches
var ErrNoProfile = errors.New("no matching profile")

// Registry holds the profiles available for discovery
type Registry struct {
	mu          sync.RWMutex
	profiles    map[string]*Profile
	constraints map[string]*semver.Constraints
}

// NewRegistry creates a registry holding profiles
func NewRegistry(profiles ...*Profile) (*Registry, error) {
	r := &Registry{
		profiles:    make(map[string]*Profile),
		constraints: make(map[string]*semver.Constraints),
	}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry with the built-in profiles
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Generic(), IBMSVC())
	if err != nil {
		// Built-in profiles are static; failing here is a programming error
		panic(err)
	}
	return r
}

// Register adds or replaces a profile
func (r *Registry) Register(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var c *semver.Constraints
	if p.Versions != "" {
		var err error
		c, err = semver.NewConstraint(p.Versions)
		if err != nil {
			return fmt.Errorf("profile %s: invalid versions constraint %q: %w", p.Name, p.Versions, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
	r.constraints[p.Name] = c
	return nil
}

// Get returns a profile by name
func (r *Registry) Get(name string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

// List returns all profiles sorted by name
func (r *Registry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

// Select picks the profile for a vendor hint and registered SMI-S version.
// Vendor-specific profiles win over vendor-neutral ones; among those, a
// profile whose constraint rejects the version is skipped. An unparseable or
// empty version satisfies every constraint.
func (r *Registry) Select(vendor, version string) (*Profile, error) {
	var v *semver.Version
	if version != "" {
		if parsed, err := semver.NewVersion(version); err == nil {
			v = parsed
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var neutral *Profile
	for _, p := range r.sortedLocked() {
		if c := r.constraints[p.Name]; c != nil && v != nil && !c.Check(v) {
			continue
		}
		switch {
		case p.Vendor == "":
			if neutral == nil || p.Name == GenericName {
				neutral = p
			}
		case vendor != "" && strings.EqualFold(p.Vendor, vendor):
			return p, nil
		}
	}
	if neutral != nil {
		return neutral, nil
	}
	return nil, fmt.Errorf("vendor %q version %q: %w", vendor, version, ErrNoProfile)
}

func (r *Registry) sortedLocked() []*Profile {
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
