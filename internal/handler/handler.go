package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"smiscope/internal/adapter"
	"smiscope/internal/codec"
	"smiscope/internal/profile"
	"smiscope/internal/service"
)

// DiscoveryTrigger allows triggering discovery from the handler
type DiscoveryTrigger interface {
	TriggerSync(ctx context.Context, name string) (*adapter.SyncResult, error)
	TriggerSyncAll(ctx context.Context) error
	ListAdapters() []adapter.AdapterInfo
}

// ProfileLister lists the registered vendor profiles
type ProfileLister interface {
	List() []*profile.Profile
}

// TopologyHandler handles topology API requests
type TopologyHandler struct {
	svc       *service.TopologyService
	discovery DiscoveryTrigger
	profiles  ProfileLister
	secrets   SecretLister
	logger    *slog.Logger
}

// NewTopologyHandler creates a new topology handler
func NewTopologyHandler(svc *service.TopologyService, logger *slog.Logger) *TopologyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopologyHandler{svc: svc, logger: logger}
}

// SetDiscoveryTrigger sets the discovery trigger (adapter registry)
func (h *TopologyHandler) SetDiscoveryTrigger(d DiscoveryTrigger) {
	h.discovery = d
}

// SetProfiles sets the profile registry listed by /api/profiles
func (h *TopologyHandler) SetProfiles(p ProfileLister) {
	h.profiles = p
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TargetInfo combines a configured target with its stored state
type TargetInfo struct {
	adapter.AdapterInfo
	HasTopology bool `json:"has_topology"`
}

// ListTargets returns configured targets plus any stored source without one
func (h *TopologyHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	sources, err := h.svc.ListSources(r.Context())
	if err != nil {
		h.logger.Error("failed to list sources", "error", err)
		h.writeError(w, "Failed to list targets", err.Error(), http.StatusInternalServerError)
		return
	}
	stored := make(map[string]bool, len(sources))
	for _, s := range sources {
		stored[s] = true
	}

	targets := []TargetInfo{}
	if h.discovery != nil {
		for _, info := range h.discovery.ListAdapters() {
			targets = append(targets, TargetInfo{AdapterInfo: info, HasTopology: stored[info.Name]})
			delete(stored, info.Name)
		}
	}
	for name := range stored {
		targets = append(targets, TargetInfo{AdapterInfo: adapter.AdapterInfo{Name: name}, HasTopology: true})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })

	h.writeJSON(w, targets, http.StatusOK)
}

// GetTopology returns the stored topology of one target
func (h *TopologyHandler) GetTopology(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	topo, err := h.svc.GetTopology(r.Context(), name)
	if err != nil {
		h.serviceError(w, "Failed to get topology", err)
		return
	}

	h.writeJSON(w, topo, http.StatusOK)
}

// DeleteTopology removes the stored topology of one target
func (h *TopologyHandler) DeleteTopology(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.svc.DeleteSource(r.Context(), name); err != nil {
		h.serviceError(w, "Failed to delete topology", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListNodes returns stored nodes filtered by ?type= and ?source=
func (h *TopologyHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.ListNodes(r.Context(), r.URL.Query().Get("type"), r.URL.Query().Get("source"))
	if err != nil {
		h.serviceError(w, "Failed to list nodes", err)
		return
	}

	h.writeJSON(w, nodes, http.StatusOK)
}

// GetNode returns a single node
func (h *TopologyHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.svc.GetNode(r.Context(), r.PathValue("id"))
	if err != nil {
		h.serviceError(w, "Failed to get node", err)
		return
	}

	h.writeJSON(w, node, http.StatusOK)
}

// ListEdges returns stored edges filtered by ?type= and ?source=
func (h *TopologyHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.svc.ListEdges(r.Context(), r.URL.Query().Get("type"), r.URL.Query().Get("source"))
	if err != nil {
		h.serviceError(w, "Failed to list edges", err)
		return
	}

	h.writeJSON(w, edges, http.StatusOK)
}

// ListRuns returns the run history, filtered by ?target= and capped by ?limit=
func (h *TopologyHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, "Invalid limit", "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.svc.ListRuns(r.Context(), r.URL.Query().Get("target"), limit)
	if err != nil {
		h.serviceError(w, "Failed to list runs", err)
		return
	}

	h.writeJSON(w, runs, http.StatusOK)
}

// GetRun returns a single run
func (h *TopologyHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.serviceError(w, "Failed to get run", err)
		return
	}

	h.writeJSON(w, run, http.StatusOK)
}

// TriggerDiscovery starts discovery of every enabled target in the background
func (h *TopologyHandler) TriggerDiscovery(w http.ResponseWriter, r *http.Request) {
	if h.discovery == nil {
		h.writeError(w, "Discovery not configured", "No targets are registered", http.StatusServiceUnavailable)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.discovery.TriggerSyncAll(ctx); err != nil {
			h.logger.Error("discovery failed", "error", err)
		}
	}()

	h.writeJSON(w, map[string]string{"status": "discovery_triggered"}, http.StatusAccepted)
}

// TriggerTargetDiscovery discovers one target. With ?wait=true the reply
// carries the run summary; otherwise discovery continues in the background.
func (h *TopologyHandler) TriggerTargetDiscovery(w http.ResponseWriter, r *http.Request) {
	if h.discovery == nil {
		h.writeError(w, "Discovery not configured", "No targets are registered", http.StatusServiceUnavailable)
		return
	}
	name := r.PathValue("name")

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		result, err := h.discovery.TriggerSync(r.Context(), name)
		if err != nil {
			h.discoveryError(w, err)
			return
		}
		nodes, edges := 0, 0
		if result.Fragment != nil {
			nodes, edges = len(result.Fragment.Nodes), len(result.Fragment.Edges)
		}
		h.writeJSON(w, map[string]any{
			"target":  name,
			"profile": result.Profile,
			"nodes":   nodes,
			"edges":   edges,
			"stats":   result.Stats,
		}, http.StatusOK)
		return
	}

	known := false
	for _, info := range h.discovery.ListAdapters() {
		if info.Name == name {
			known = info.Enabled
			break
		}
	}
	if !known {
		h.writeError(w, "Unknown target", name+" is not a configured, enabled target", http.StatusNotFound)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.discovery.TriggerSync(ctx, name); err != nil {
			h.logger.Error("discovery failed", "target", name, "error", err)
		}
	}()

	h.writeJSON(w, map[string]string{"status": "discovery_triggered", "target": name}, http.StatusAccepted)
}

// Export renders stored topology in the format named by the path;
// ?target= limits it to one target
func (h *TopologyHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	if _, err := codec.ExporterFor(format); err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.svc.Export(r.Context(), r.URL.Query().Get("target"), format)
	if err != nil {
		h.logger.Error("failed to export", "format", format, "error", err)
		h.writeError(w, "Failed to export", err.Error(), http.StatusInternalServerError)
		return
	}

	contentType, ext := "application/x-yaml", "yml"
	if format == "json" {
		contentType, ext = "application/json", "json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=topology."+ext)
	w.Write(data)
}

// Import stores a fragment posted in the format named by the path.
// ?source= names the owner when the file does not; ?strategy= is merge or replace.
func (h *TopologyHandler) Import(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	q := r.URL.Query()

	counts, err := h.svc.Import(r.Context(), r.Body, format, q.Get("source"), q.Get("strategy"))
	if err != nil {
		h.writeError(w, "Failed to import", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, counts, http.StatusOK)
}

// ListProfiles returns the registered vendor profiles
func (h *TopologyHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		h.writeJSON(w, []*profile.Profile{}, http.StatusOK)
		return
	}
	h.writeJSON(w, h.profiles.List(), http.StatusOK)
}

// Helper methods

func (h *TopologyHandler) serviceError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, service.ErrNotFound) {
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	}
	h.logger.Error(msg, "error", err)
	h.writeError(w, msg, err.Error(), http.StatusInternalServerError)
}

func (h *TopologyHandler) discoveryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, adapter.ErrAdapterNotFound), errors.Is(err, adapter.ErrAdapterDisabled):
		h.writeError(w, "Unknown target", err.Error(), http.StatusNotFound)
	default:
		h.writeError(w, "Discovery failed", err.Error(), http.StatusBadGateway)
	}
}

func (h *TopologyHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *TopologyHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
