package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smiscope/internal/config"
)

func (c *cli) initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Init writes the default configuration to --config, or to
$XDG_CONFIG_HOME/smiscope/config.yaml when no path is given. Add targets and
secrets to the file before running discover or serve.`,
		Args: cobra.NoArgs,
		// The config file does not exist yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
