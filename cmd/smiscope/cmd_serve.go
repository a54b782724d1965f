package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smiscope/internal/adapter"
	"smiscope/internal/handler"
	"smiscope/internal/hub"
	"smiscope/internal/profile"
	"smiscope/internal/service"
	"smiscope/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll every configured target and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context(), addr, dbPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default: http.addr from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: database.path from config)")
	return cmd
}

func (c *cli) serve(ctx context.Context, addr, dbPath string) error {
	if addr == "" {
		addr = c.cfg.HTTP.Addr
	}
	c.logger.Info("starting smiscope server", "config", c.cfg.Summary())

	repo, err := c.openRepository(dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	bus := service.NewEventBus()
	events := hub.New(c.logger)

	reconciler := service.NewReconcileService(repo, bus, c.logger)
	adapters := adapter.NewRegistry(reconciler.Reconcile, c.logger)
	adapters.SetDiscoveryEventHandler(func(eventType string, payload interface{}) {
		bus.Publish(service.Event{
			Type:    service.EventType(eventType),
			Payload: payload,
		})
	})

	profiles, err := c.profiles()
	if err != nil {
		return err
	}
	builder := c.builder()
	for i := range c.cfg.Targets {
		t := &c.cfg.Targets[i]
		a, err := c.targetAdapter(t.Name, profiles, builder, adapter.AdapterTypePolling)
		if err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
		if err := adapters.Register(a, adapter.AdapterConfig{
			Enabled:      t.IsEnabled(),
			PollInterval: c.cfg.PollInterval(t),
		}); err != nil {
			return err
		}
	}

	h := handler.NewTopologyHandler(service.NewTopologyService(repo, bus), c.logger)
	h.SetDiscoveryTrigger(adapters)
	h.SetProfiles(profiles)
	h.SetSecrets(c.cfg)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.NewRouter(h, events, c.logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		events.Run(gctx)
		return nil
	})

	// Forward bus events to SSE clients
	eventCh := make(chan service.Event, 100)
	bus.Subscribe(eventCh)
	g.Go(func() error {
		defer bus.Unsubscribe(eventCh)
		for {
			select {
			case ev := <-eventCh:
				events.Broadcast(ev)
			case <-gctx.Done():
				return nil
			}
		}
	})

	if dir := c.cfg.ProfilesDir; dir != "" {
		g.Go(func() error {
			w := watcher.New(dir, func() {
				if _, err := profile.LoadOverrides(dir, profiles, c.logger); err != nil {
					c.logger.Error("failed to reload profile overrides", "dir", dir, "error", err)
				}
			}, ".yaml", ".yml").WithLogger(c.logger)
			if err := w.Watch(gctx); err != nil && gctx.Err() == nil {
				c.logger.Warn("profile overrides will not reload", "dir", dir, "error", err)
			}
			return nil
		})
	}

	if err := adapters.Start(gctx); err != nil {
		c.logger.Warn("failed to start adapter registry", "error", err)
	}

	g.Go(func() error {
		c.logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shutting down server")

		if err := adapters.Stop(); err != nil {
			c.logger.Error("adapter registry shutdown error", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	c.logger.Info("server stopped")
	return err
}
