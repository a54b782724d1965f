package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"smiscope/internal/cim"
	"smiscope/internal/config"
	"smiscope/internal/domain"
	"smiscope/internal/profile"
	"smiscope/internal/topology"
)

// SnapshotScheme marks a target URL that replays a captured snapshot file
const SnapshotScheme = "file"

// SMISConfig describes one SMI-S provider with its credentials resolved
type SMISConfig struct {
	Name             string
	URL              string
	Namespace        string
	InteropNamespace string
	// Profile is a registered profile name, or config.ProfileAuto
	Profile              string
	Secret               *domain.Secret
	InsecureSkipVerify   bool
	Tunnel               *TunnelSettings
	QueryTimeout         time.Duration
	MaxConcurrentQueries int
}

// TunnelSettings routes the WBEM connection through an SSH bastion
type TunnelSettings struct {
	Addr           string
	Secret         *domain.Secret
	KnownHostsFile string
}

// NewSMISConfig resolves a configured target's secrets and behavior
func NewSMISConfig(cfg *config.Config, t *config.TargetConfig) (SMISConfig, error) {
	behavior := cfg.EffectiveBehavior()
	sc := SMISConfig{
		Name:                 t.Name,
		URL:                  t.URL,
		Namespace:            t.Namespace,
		InteropNamespace:     t.InteropNamespace,
		Profile:              t.Profile,
		InsecureSkipVerify:   t.InsecureSkipVerify,
		QueryTimeout:         behavior.QueryTimeout,
		MaxConcurrentQueries: behavior.MaxConcurrentQueries,
	}

	secret, err := cfg.ResolveSecret(t.Secret)
	if err != nil {
		return sc, fmt.Errorf("target %s: %w", t.Name, err)
	}
	sc.Secret = secret

	if t.Tunnel != nil {
		tunnelSecret, err := cfg.ResolveSecret(t.Tunnel.Secret)
		if err != nil {
			return sc, fmt.Errorf("target %s tunnel: %w", t.Name, err)
		}
		sc.Tunnel = &TunnelSettings{
			Addr:           t.Tunnel.Addr,
			Secret:         tunnelSecret,
			KnownHostsFile: t.Tunnel.KnownHostsFile,
		}
	}
	return sc, nil
}

// SMISAdapter discovers one storage array through its SMI-S provider
type SMISAdapter struct {
	config   SMISConfig
	registry *profile.Registry
	builder  *topology.Builder
	logger   *slog.Logger
	kind     AdapterType

	mu       sync.Mutex
	tunnel   *cim.SSHTunnel
	provider cim.QueryProvider
	interop  cim.QueryProvider
	// pinned is the profile recorded in a replayed snapshot
	pinned    string
	publisher EventPublisher
}

// SMISOption is a functional option for configuring SMISAdapter
type SMISOption func(*SMISAdapter)

// WithSMISLogger sets the logger
func WithSMISLogger(logger *slog.Logger) SMISOption {
	return func(a *SMISAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithProviders replaces the WBEM connection with fixed providers
func WithProviders(provider, interop cim.QueryProvider) SMISOption {
	return func(a *SMISAdapter) {
		a.provider = provider
		a.interop = interop
	}
}

// WithAdapterType overrides the adapter type (default polling)
func WithAdapterType(t AdapterType) SMISOption {
	return func(a *SMISAdapter) {
		a.kind = t
	}
}

// NewSMISAdapter creates an adapter for one target
func NewSMISAdapter(cfg SMISConfig, registry *profile.Registry, builder *topology.Builder, opts ...SMISOption) (*SMISAdapter, error) {
	if cfg.Name == "" {
		return nil, errors.New("smis adapter: target name is required")
	}
	if registry == nil {
		registry = profile.DefaultRegistry()
	}
	if builder == nil {
		builder = topology.NewBuilder(topology.WithMaxConcurrentQueries(cfg.MaxConcurrentQueries))
	}
	if cfg.Profile == "" {
		cfg.Profile = config.ProfileAuto
	}
	a := &SMISAdapter{
		config:   cfg,
		registry: registry,
		builder:  builder,
		logger:   slog.Default(),
		kind:     AdapterTypePolling,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("target", cfg.Name)
	return a, nil
}

// Name returns the target name
func (a *SMISAdapter) Name() string {
	return a.config.Name
}

// Type returns the adapter type
func (a *SMISAdapter) Type() AdapterType {
	return a.kind
}

// SetEventPublisher implements ProgressAdapter
func (a *SMISAdapter) SetEventPublisher(pub EventPublisher) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publisher = pub
}

// Start opens the connection; nothing is sent until the first sync
func (a *SMISAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connectLocked()
}

// Stop closes the SSH tunnel, if any
func (a *SMISAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tunnel == nil {
		return nil
	}
	err := a.tunnel.Close()
	a.tunnel = nil
	return err
}

func (a *SMISAdapter) connectLocked() error {
	if a.provider != nil {
		return nil
	}

	u, err := url.Parse(a.config.URL)
	if err != nil {
		return fmt.Errorf("target %s: invalid url: %w", a.config.Name, err)
	}
	if u.Scheme == SnapshotScheme {
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		snap, err := cim.LoadSnapshot(path)
		if err != nil {
			return fmt.Errorf("target %s: %w", a.config.Name, err)
		}
		a.provider, a.interop, a.pinned = snap, snap, snap.Profile
		return nil
	}

	opts := []cim.WBEMOption{
		cim.WithInsecureSkipVerify(a.config.InsecureSkipVerify),
		cim.WithWBEMLogger(a.logger),
	}
	if a.config.QueryTimeout > 0 {
		opts = append(opts, cim.WithWBEMTimeout(a.config.QueryTimeout))
	}
	if a.config.Secret != nil {
		opts = append(opts, cim.WithCredentials(a.config.Secret))
	}
	if t := a.config.Tunnel; t != nil {
		tunnel, err := cim.NewSSHTunnel(t.Addr, t.Secret, t.KnownHostsFile, 0, a.logger)
		if err != nil {
			return fmt.Errorf("target %s: %w", a.config.Name, err)
		}
		a.tunnel = tunnel
		opts = append(opts, cim.WithDialer(tunnel.DialContext))
	}

	client, err := cim.NewWBEMClient(a.config.URL, a.config.Namespace, opts...)
	if err != nil {
		return fmt.Errorf("target %s: %w", a.config.Name, err)
	}
	a.provider = client
	a.interop = client.InNamespace(a.config.InteropNamespace)
	return nil
}

// connection returns the providers, connecting on first use
func (a *SMISAdapter) connection() (cim.QueryProvider, cim.QueryProvider, string, EventPublisher, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.connectLocked(); err != nil {
		return nil, nil, "", nil, err
	}
	return a.provider, a.interop, a.pinned, a.publisher, nil
}

// SelectProfile returns the configured profile, or detects one from the
// interop namespace when the target asks for auto detection
func (a *SMISAdapter) SelectProfile(ctx context.Context) (*profile.Profile, *profile.Detection, error) {
	_, interop, pinned, pub, err := a.connection()
	if err != nil {
		return nil, nil, err
	}

	name := a.config.Profile
	if name == config.ProfileAuto && pinned != "" {
		name = pinned
	}
	if name != config.ProfileAuto {
		p, ok := a.registry.Get(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown profile %q", topology.ErrConfiguration, name)
		}
		return p, nil, nil
	}

	p, det := profile.Detect(ctx, interop, a.registry, a.logger)
	if pub != nil {
		pub.PublishDiscoveryEvent(EventProfileDetected, map[string]any{
			"target":    a.config.Name,
			"detection": det,
		})
	}
	return p, &det, nil
}

// Sync runs one discovery of the target
func (a *SMISAdapter) Sync(ctx context.Context) (*SyncResult, error) {
	started := time.Now().UTC()
	provider, _, _, _, err := a.connection()
	if err != nil {
		return nil, err
	}

	p, det, err := a.SelectProfile(ctx)
	if err != nil {
		return nil, err
	}

	sink := topology.NewFragmentSink(a.config.Name)
	topo, snap, err := a.builder.Discover(ctx, provider, p, sink, a.config.Name)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", a.config.Name, err)
	}

	return &SyncResult{
		Fragment:   sink.Fragment(),
		Profile:    p.Name,
		Detection:  det,
		Stats:      topo.Stats,
		Snapshot:   snap,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}, nil
}

// Capture collects every class the selected profile names without resolving
// them. CIM_RegisteredProfile from the interop namespace is included so the
// snapshot can be replayed with profile detection.
func (a *SMISAdapter) Capture(ctx context.Context) (*cim.Snapshot, error) {
	provider, interop, _, _, err := a.connection()
	if err != nil {
		return nil, err
	}

	p, _, err := a.SelectProfile(ctx)
	if err != nil {
		return nil, err
	}

	collector := cim.NewCollector(provider,
		cim.WithMaxConcurrent(a.config.MaxConcurrentQueries),
		cim.WithTarget(a.config.Name),
		cim.WithCollectorLogger(a.logger),
	)
	snap, err := collector.Collect(ctx, p.Classes())
	if err != nil {
		return nil, err
	}
	snap.Profile = p.Name

	registered := cim.SafeQuery(ctx, interop, profile.RegisteredProfileClass, a.logger)
	if !registered.Failed() && !registered.Unsupported() {
		snap.Add(registered)
	}
	return snap, nil
}

// String renders the target for logs without credentials
func (a *SMISAdapter) String() string {
	via := ""
	if a.config.Tunnel != nil {
		via = " via " + a.config.Tunnel.Addr
	}
	return fmt.Sprintf("%s (%s%s, profile %s)", a.config.Name, strings.TrimSuffix(a.config.URL, "/"), via, a.config.Profile)
}
