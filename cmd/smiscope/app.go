package main

import (
	"fmt"
	"io"
	"os"

	"smiscope/internal/adapter"
	"smiscope/internal/codec"
	"smiscope/internal/domain"
	"smiscope/internal/profile"
	"smiscope/internal/repository/sqlite"
	"smiscope/internal/topology"
)

// profiles returns the built-in profiles plus any overrides in the profiles dir
func (c *cli) profiles() (*profile.Registry, error) {
	registry := profile.DefaultRegistry()
	if _, err := profile.LoadOverrides(c.cfg.ProfilesDir, registry, c.logger); err != nil {
		return nil, fmt.Errorf("load profile overrides: %w", err)
	}
	return registry, nil
}

func (c *cli) builder() *topology.Builder {
	behavior := c.cfg.EffectiveBehavior()
	return topology.NewBuilder(
		topology.WithLogger(c.logger),
		topology.WithMaxConcurrentQueries(behavior.MaxConcurrentQueries),
	)
}

// targetAdapter builds the adapter for a configured target
func (c *cli) targetAdapter(name string, registry *profile.Registry, builder *topology.Builder, kind adapter.AdapterType) (*adapter.SMISAdapter, error) {
	t, err := c.cfg.Target(name)
	if err != nil {
		return nil, err
	}
	sc, err := adapter.NewSMISConfig(c.cfg, t)
	if err != nil {
		return nil, err
	}
	return adapter.NewSMISAdapter(sc, registry, builder,
		adapter.WithSMISLogger(c.logger),
		adapter.WithAdapterType(kind),
	)
}

func (c *cli) openRepository(path string) (*sqlite.Repository, error) {
	if path == "" {
		path = c.cfg.Database.Path
	}
	repo, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	c.logger.Debug("database opened", "path", path)
	return repo, nil
}

// writeFragment renders a fragment to output, or stdout when output is empty
func (c *cli) writeFragment(frag *domain.GraphFragment, format, output string) error {
	exporter, err := codec.ExporterFor(format)
	if err != nil {
		return err
	}

	var w io.Writer = c.stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	return exporter.Export(frag, w)
}
