package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrAdapterNotFound is returned when triggering an unregistered adapter
var ErrAdapterNotFound = errors.New("adapter not found")

// ErrAdapterDisabled is returned when triggering a disabled adapter
var ErrAdapterDisabled = errors.New("adapter disabled")

// defaultPollInterval applies when a polling adapter has none configured
const defaultPollInterval = time.Hour

// ReconcileFunc is called after every sync. syncErr is the adapter's error;
// result is nil when it is not.
type ReconcileFunc func(ctx context.Context, source string, result *SyncResult, syncErr error) error

// DiscoveryEventFunc is called when discovery events occur
type DiscoveryEventFunc func(eventType string, payload interface{})

// Registry manages all registered adapters and their lifecycle
type Registry struct {
	mu             sync.RWMutex
	adapters       map[string]Adapter
	configs        map[string]AdapterConfig
	locks          map[string]*sync.Mutex
	reconcile      ReconcileFunc
	discoveryEvent DiscoveryEventFunc
	logger         *slog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// NewRegistry creates a new adapter registry
func NewRegistry(reconcile ReconcileFunc, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		adapters:  make(map[string]Adapter),
		configs:   make(map[string]AdapterConfig),
		locks:     make(map[string]*sync.Mutex),
		reconcile: reconcile,
		logger:    logger,
	}
}

// SetDiscoveryEventHandler sets the handler for discovery events
func (r *Registry) SetDiscoveryEventHandler(handler DiscoveryEventFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discoveryEvent = handler
}

// PublishDiscoveryEvent implements EventPublisher interface
func (r *Registry) PublishDiscoveryEvent(eventType string, payload interface{}) {
	r.mu.RLock()
	handler := r.discoveryEvent
	r.mu.RUnlock()

	if handler != nil {
		handler(eventType, payload)
	}
}

// Register adds an adapter to the registry
func (r *Registry) Register(adapter Adapter, config AdapterConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := adapter.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %s already registered", name)
	}

	// Set event publisher if adapter supports it
	if progressAdapter, ok := adapter.(ProgressAdapter); ok {
		progressAdapter.SetEventPublisher(r)
	}

	r.adapters[name] = adapter
	r.configs[name] = config
	r.locks[name] = &sync.Mutex{}
	r.logger.Info("registered adapter",
		"adapter", name, "type", adapter.Type(), "enabled", config.Enabled, "poll_interval", config.PollInterval)

	return nil
}

// Start initializes all enabled adapters and begins their sync cycles
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(ctx)

	for _, name := range r.namesLocked() {
		adapter := r.adapters[name]
		config := r.configs[name]
		if !config.Enabled {
			r.logger.Info("adapter is disabled, skipping", "adapter", name)
			continue
		}

		if err := adapter.Start(r.ctx); err != nil {
			r.logger.Error("failed to start adapter", "adapter", name, "error", err)
			continue
		}

		if adapter.Type() == AdapterTypePolling {
			r.startPollingLoop(name, adapter, config)
		}
	}

	return nil
}

// Stop gracefully shuts down all adapters
func (r *Registry) Stop() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	// Polling loops take the read lock while syncing
	r.wg.Wait()

	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for name, adapter := range r.adapters {
		if err := adapter.Stop(); err != nil {
			r.logger.Error("error stopping adapter", "adapter", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// TriggerSync manually triggers a sync for a specific adapter
func (r *Registry) TriggerSync(ctx context.Context, name string) (*SyncResult, error) {
	r.mu.RLock()
	adapter, exists := r.adapters[name]
	config := r.configs[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}

	if !config.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrAdapterDisabled, name)
	}

	return r.runSync(ctx, name, adapter)
}

// TriggerSyncAll manually triggers sync for all enabled adapters
func (r *Registry) TriggerSyncAll(ctx context.Context) error {
	r.mu.RLock()
	var names []string
	for _, name := range r.namesLocked() {
		if r.configs[name].Enabled {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()

	var errs []error
	for _, name := range names {
		if _, err := r.TriggerSync(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// ListAdapters returns information about registered adapters
func (r *Registry) ListAdapters() []AdapterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []AdapterInfo
	for _, name := range r.namesLocked() {
		adapter := r.adapters[name]
		config := r.configs[name]
		info := AdapterInfo{
			Name:    name,
			Type:    adapter.Type(),
			Enabled: config.Enabled,
		}
		if config.PollInterval > 0 {
			info.PollInterval = config.PollInterval.String()
		}
		infos = append(infos, info)
	}
	return infos
}

// AdapterInfo provides read-only information about an adapter
type AdapterInfo struct {
	Name         string      `json:"name"`
	Type         AdapterType `json:"type"`
	Enabled      bool        `json:"enabled"`
	PollInterval string      `json:"poll_interval,omitempty"`
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// startPollingLoop starts a goroutine that polls the adapter on schedule
func (r *Registry) startPollingLoop(name string, adapter Adapter, config AdapterConfig) {
	interval := config.PollInterval
	if interval <= 0 {
		r.logger.Warn("no poll interval, using default", "adapter", name, "interval", defaultPollInterval)
		interval = defaultPollInterval
	}
	ctx := r.ctx

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		// Run initial sync
		if _, err := r.runSync(ctx, name, adapter); err != nil {
			r.logger.Error("initial sync failed", "adapter", name, "error", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("stopping polling loop", "adapter", name)
				return
			case <-ticker.C:
				if _, err := r.runSync(ctx, name, adapter); err != nil {
					r.logger.Error("sync failed", "adapter", name, "error", err)
				}
			}
		}
	}()

	r.logger.Info("started polling loop", "adapter", name, "interval", interval)
}

// runSync executes a sync operation and reconciles the result. Syncs of the
// same adapter never overlap.
func (r *Registry) runSync(ctx context.Context, name string, adapter Adapter) (*SyncResult, error) {
	r.mu.RLock()
	lock := r.locks[name]
	r.mu.RUnlock()
	lock.Lock()
	defer lock.Unlock()

	r.logger.Debug("running sync", "adapter", name)
	r.PublishDiscoveryEvent(EventDiscoveryStarted, map[string]string{"target": name})

	result, syncErr := adapter.Sync(ctx)
	if syncErr == nil && result == nil {
		result = &SyncResult{}
	}
	if syncErr != nil {
		result = nil
		r.PublishDiscoveryEvent(EventDiscoveryFailed, map[string]string{"target": name, "error": syncErr.Error()})
	}

	if r.reconcile != nil {
		if err := r.reconcile(ctx, name, result, syncErr); err != nil {
			return result, fmt.Errorf("reconcile failed: %w", err)
		}
	}
	if syncErr != nil {
		return nil, fmt.Errorf("sync failed: %w", syncErr)
	}

	nodes, edges := 0, 0
	if result.Fragment != nil {
		nodes, edges = len(result.Fragment.Nodes), len(result.Fragment.Edges)
	}
	r.PublishDiscoveryEvent(EventDiscoveryCompleted, map[string]any{
		"target":  name,
		"profile": result.Profile,
		"nodes":   nodes,
		"edges":   edges,
		"stats":   result.Stats,
	})
	r.logger.Info("sync complete", "adapter", name, "nodes", nodes, "edges", edges)

	return result, nil
}
