package profile

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// overrideFile is the on-disk form of a profile derived from a registered base
type overrideFile struct {
	Name         string                               `yaml:"name"`
	Base         string                               `yaml:"base"`
	Description  string                               `yaml:"description"`
	Vendor       string                               `yaml:"vendor"`
	Versions     string                               `yaml:"versions"`
	Namespace    string                               `yaml:"namespace"`
	Entities     map[EntityClass]string               `yaml:"entities"`
	Associations map[AssociationClass]AssociationSpec `yaml:"associations"`
}

// ParseOverride builds a profile from YAML. Classes not named in the file are
// inherited from the base profile, as are its parse overrides; an empty class
// name removes the mapping.
func ParseOverride(r io.Reader, registry *Registry) (*Profile, error) {
	var f overrideFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("profile name is required")
	}
	if f.Base == "" {
		f.Base = GenericName
	}
	base, ok := registry.Get(f.Base)
	if !ok {
		return nil, fmt.Errorf("profile %s: unknown base %q", f.Name, f.Base)
	}

	p := base.Clone()
	p.Name = f.Name
	if f.Description != "" {
		p.Description = f.Description
	}
	if f.Vendor != "" {
		p.Vendor = f.Vendor
	}
	if f.Versions != "" {
		p.Versions = f.Versions
	}
	if f.Namespace != "" {
		p.Namespace = f.Namespace
	}
	for entity, class := range f.Entities {
		if class == "" {
			delete(p.Entities, entity)
			continue
		}
		p.Entities[entity] = class
	}
	for assoc, spec := range f.Associations {
		if spec.Class == "" {
			delete(p.Associations, assoc)
			continue
		}
		if prev, ok := p.Associations[assoc]; ok {
			if spec.SourceRole == "" {
				spec.SourceRole = prev.SourceRole
			}
			if spec.TargetRole == "" {
				spec.TargetRole = prev.TargetRole
			}
		}
		p.Associations[assoc] = spec
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadOverrides registers every *.yaml/*.yml profile in dir and returns how
// many were loaded. A missing directory is not an error.
func LoadOverrides(dir string, registry *Registry, logger *slog.Logger) (int, error) {
	if dir == "" {
		return 0, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read profiles dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := loadOverrideFile(path, registry)
		if err != nil {
			return loaded, fmt.Errorf("%s: %w", path, err)
		}
		if err := registry.Register(p); err != nil {
			return loaded, fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("loaded profile override", "profile", p.Name, "path", path)
		loaded++
	}
	return loaded, nil
}

func loadOverrideFile(path string, registry *Registry) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseOverride(f, registry)
}
