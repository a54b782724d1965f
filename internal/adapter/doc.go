// Package adapter connects smiscope to SMI-S providers.
//
// An adapter owns the connection to one discovery source and turns a sync
// into a resolved graph fragment. Each registers with the Registry, which runs
// polling loops and hands every result to a reconcile function.
//
// # SMI-S adapter
//
// SMISAdapter speaks CIM-XML to one array's provider, optionally through an SSH
// bastion. It selects the vendor profile (configured, or detected from
// CIM_RegisteredProfile in the interop namespace), collects every class the
// profile names and resolves the records with the topology builder. A target
// URL with the file:// scheme replays a captured snapshot instead.
//
// # Adapter Registry
//
// Registry manages registered adapters. It starts a polling loop per enabled
// polling adapter, serializes syncs of the same adapter, and publishes
// discovery events for the SSE stream.
package adapter
