// Package handler implements HTTP request handlers for the smiscope API.
//
// # Handlers
//
// TopologyHandler serves stored storage topologies, the discovery run history,
// import/export in the codec formats and the registered vendor profiles. It can
// trigger discovery of one or all targets through the adapter registry.
//
// # Routes
//
// NewRouter wires every route on a ServeMux using method patterns
// ("GET /api/targets/{name}/topology"), adds Prometheus request metrics and a
// debug request log, and serves /metrics.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 202).
// Error responses return JSON with {error, details} structure.
//
// # Server-Sent Events
//
// /api/events streams discovery progress, topology changes and recorded runs.
package handler
