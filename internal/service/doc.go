// Package service implements business logic for smiscope.
//
// This package provides service layers that coordinate between the HTTP handlers,
// the adapter registry and the repository layer.
//
// # Services
//
// ReconcileService receives every adapter sync. A successful sync replaces the
// stored topology of its target in one transaction; every sync, failed or not,
// is recorded in the run history under a fresh run id.
//
// TopologyService reads stored topologies and run history, and imports or
// exports fragments via codec adapters.
//
// # Event System
//
// Services publish events via EventBus for real-time updates to connected
// clients via Server-Sent Events (SSE): discovery progress, topology changes
// and recorded runs.
package service
