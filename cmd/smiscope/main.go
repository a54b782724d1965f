// Command smiscope discovers storage array topology over SMI-S.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smiscope/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// cli carries the state shared by every command
type cli struct {
	configPath string
	logLevel   string

	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "smiscope",
		Short: "Resolve storage array topology from SMI-S providers",
		Long: `smiscope queries SMI-S (CIM/WBEM) providers, resolves arrays, pools,
volumes, ports and host masking into a topology graph, and stores the result
for the HTTP API.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: search $SMISCOPE_CONFIG, ./smiscope.yaml, ~/.config/smiscope)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		c.discoverCmd(),
		c.captureCmd(),
		c.replayCmd(),
		c.serveCmd(),
		c.profilesCmd(),
		c.initCmd(),
	)
	return root
}

// load reads the config file and builds the logger before any command runs
func (c *cli) load(cmd *cobra.Command, args []string) error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if c.configPath != "" {
		cfg, path, err = config.LoadFromPath(c.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	logger, err := cfg.Logger(c.stderr)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	slog.SetDefault(logger)

	c.cfg, c.logger = cfg, logger
	if path != "" {
		logger.Debug("loaded config", "path", path, "targets", len(cfg.Targets))
	}
	return nil
}
