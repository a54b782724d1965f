// Package domain defines the core types of the smiscope storage topology resolver.
//
// # Raw records
//
// RawEntityRecord and AssociationRecord are what a query provider returns for a
// CIM class. Attributes are provider property names and are only converted at
// the parse boundary (String, Uint64, Bool), so a single malformed record can be
// skipped without aborting a run.
//
// Reference is the composite (scope, local id) pointer embedded in a record.
// Arrays are referenced by their system name with an empty local id; components
// by their owning system name plus DeviceID/InstanceID.
//
// # Typed entities
//
// StorageArray, StorageProcessor, IOGroup, Port, HostAdapter, RemoteEndpoint,
// PhysicalVolume, StoragePool, LogicalVolume, FileSystem and FileShare are the
// parsed forms of raw records. Each renders its normalized attributes through
// Properties().
//
// # Resolved graph
//
// ResolvedNode and ResolvedEdge are what the topology builder hands to an entity
// sink. Node and Edge are the persisted/exported forms with deterministic ids,
// collected into a GraphFragment per target.
//
// # Identifiers
//
// NormalizeWWN and NormalizeHardwareID canonicalize vendor id spellings. A WWN
// that does not become XX:XX:XX:XX:XX:XX:XX:XX is rejected.
package domain
