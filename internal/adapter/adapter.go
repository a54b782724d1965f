package adapter

import (
	"context"
	"time"

	"smiscope/internal/cim"
	"smiscope/internal/domain"
	"smiscope/internal/profile"
)

// AdapterType defines how an adapter interacts with its data source
type AdapterType string

const (
	// AdapterTypePolling - adapter pulls data on a schedule
	AdapterTypePolling AdapterType = "polling"
	// AdapterTypeOneShot - manual trigger only (e.g., snapshot replay)
	AdapterTypeOneShot AdapterType = "oneshot"
)

// AdapterConfig holds configuration for an adapter instance
type AdapterConfig struct {
	// Enabled determines if the adapter should run
	Enabled bool `json:"enabled"`
	// PollInterval for polling adapters
	PollInterval time.Duration `json:"poll_interval,omitempty"`
}

// SyncResult is what one discovery of a target produced
type SyncResult struct {
	Fragment  *domain.GraphFragment `json:"fragment"`
	Profile   string                `json:"profile"`
	Detection *profile.Detection    `json:"detection,omitempty"`
	Stats     domain.RunStats       `json:"stats"`
	// Snapshot is the raw collection the fragment was resolved from
	Snapshot   *cim.Snapshot `json:"-"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Adapter defines the interface for data source integrations
type Adapter interface {
	// Name returns the unique identifier for this adapter; it is the
	// source recorded on every node the adapter produces
	Name() string

	// Type returns how this adapter interacts with its source
	Type() AdapterType

	// Start initializes the adapter (called once on startup)
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter
	Stop() error

	// Sync discovers the source and returns the resolved fragment.
	// This is called on schedule for polling adapters, or manually for oneshot
	Sync(ctx context.Context) (*SyncResult, error)
}

// EventPublisher allows adapters to publish progress events
type EventPublisher interface {
	PublishDiscoveryEvent(eventType string, payload interface{})
}

// ProgressAdapter extends Adapter with progress reporting
type ProgressAdapter interface {
	Adapter

	// SetEventPublisher sets the event publisher for progress updates
	SetEventPublisher(pub EventPublisher)
}

// Discovery event types published through EventPublisher
const (
	EventDiscoveryStarted   = "discovery_started"
	EventProfileDetected    = "profile_detected"
	EventDiscoveryCompleted = "discovery_completed"
	EventDiscoveryFailed    = "discovery_failed"
)
