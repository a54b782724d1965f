package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"smiscope/internal/adapter"
	"smiscope/internal/cim"
	"smiscope/internal/codec"
	"smiscope/internal/config"
	"smiscope/internal/service"
)

func (c *cli) discoverCmd() *cobra.Command {
	var (
		target string
		format string
		output string
		store  bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover one target and print its topology",
		Long: `Discover queries a configured target, resolves its topology and prints it.
With --db the topology replaces the target's stored topology and the run is
recorded in the configured database, as the server does on every poll.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			registry, err := c.profiles()
			if err != nil {
				return err
			}
			a, err := c.targetAdapter(target, registry, c.builder(), adapter.AdapterTypeOneShot)
			if err != nil {
				return err
			}
			defer a.Stop()

			c.logger.Info("discovering target", "target", a.String())
			result, syncErr := a.Sync(ctx)

			if store {
				repo, err := c.openRepository("")
				if err != nil {
					return err
				}
				defer repo.Close()
				reconciler := service.NewReconcileService(repo, nil, c.logger)
				if err := reconciler.Reconcile(ctx, target, result, syncErr); err != nil && syncErr == nil {
					return err
				}
			}
			if syncErr != nil {
				return syncErr
			}

			return c.writeFragment(result.Fragment, format, output)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "configured target name")
	cmd.Flags().StringVarP(&format, "format", "f", "json", formatHelp())
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&store, "db", false, "store the topology and run record in the configured database")
	cmd.MarkFlagRequired("target")
	return cmd
}

func (c *cli) captureCmd() *cobra.Command {
	var (
		target string
		output string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Save a target's raw CIM records to a snapshot file",
		Long: `Capture collects every class the target's profile queries, without
resolving them, and writes a YAML snapshot. The snapshot replays offline with
"smiscope replay" or as a file:// target URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := c.profiles()
			if err != nil {
				return err
			}
			a, err := c.targetAdapter(target, registry, c.builder(), adapter.AdapterTypeOneShot)
			if err != nil {
				return err
			}
			defer a.Stop()

			snap, err := a.Capture(cmd.Context())
			if err != nil {
				return err
			}
			if err := cim.SaveSnapshot(output, snap); err != nil {
				return err
			}

			c.logger.Info("snapshot saved",
				"target", target,
				"profile", snap.Profile,
				"path", output,
				"queries", snap.QueryCount(),
				"failed_queries", snap.FailureCount(),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "configured target name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file to write")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("output")
	return cmd
}

func (c *cli) replayCmd() *cobra.Command {
	var (
		name        string
		profileName string
		format      string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Resolve a captured snapshot offline",
		Long: `Replay resolves a snapshot written by "smiscope capture". The profile
recorded in the snapshot is used unless --profile names another one; "auto"
detects it from the captured registered profiles.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			registry, err := c.profiles()
			if err != nil {
				return err
			}
			a, err := adapter.NewSMISAdapter(adapter.SMISConfig{
				Name:    name,
				URL:     adapter.SnapshotScheme + "://" + filepath.ToSlash(path),
				Profile: profileName,
			}, registry, c.builder(),
				adapter.WithSMISLogger(c.logger),
				adapter.WithAdapterType(adapter.AdapterTypeOneShot),
			)
			if err != nil {
				return err
			}

			result, err := a.Sync(cmd.Context())
			if err != nil {
				return err
			}
			if result.Detection != nil {
				c.logger.Info("profile detected", "profile", result.Profile, "vendor", result.Detection.Vendor, "version", result.Detection.Version)
			}
			return c.writeFragment(result.Fragment, format, output)
		},
	}

	cmd.Flags().StringVar(&name, "target", "", "target name for the resolved nodes (default: file name)")
	cmd.Flags().StringVarP(&profileName, "profile", "p", config.ProfileAuto, "profile name, or auto")
	cmd.Flags().StringVarP(&format, "format", "f", "json", formatHelp())
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// formatHelp lists the export formats for flag help
func formatHelp() string {
	return fmt.Sprintf("output format (%s)", strings.Join(codec.Formats(), ", "))
}
