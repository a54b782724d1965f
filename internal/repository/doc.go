// Package repository defines the data access interfaces for smiscope.
//
// Resolved topologies are stored per source (one source per discovery
// target) so that each target's latest fragment can be replaced without
// touching other targets. The actual implementation is in the sqlite
// subpackage.
//
// # Repository Interface
//
// The Repository interface covers nodes and edges grouped by source, and
// the history of discovery runs with their statistics.
//
// # SQLite Implementation
//
// The sqlite implementation uses the pure-Go modernc.org/sqlite driver with
// WAL mode. It handles:
//
// - Upserts keyed by deterministic node and edge ids
// - JSON serialization of properties
// - Foreign key constraints and cascade deletes
// - Transactional fragment imports with stale-row removal
//
// # Testing
//
// The sqlite repository is tested with in-memory databases.
package repository
