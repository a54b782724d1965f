package handler

import (
	"net/http"

	"smiscope/internal/domain"
)

// SecretLister lists the configured secrets without their values
type SecretLister interface {
	SecretSummaries() []domain.SecretSummary
}

// SetSecrets sets the secret source listed by /api/secrets
func (h *TopologyHandler) SetSecrets(s SecretLister) {
	h.secrets = s
}

// ListSecrets returns all secrets (summaries only)
// GET /api/secrets?type=ssh_key&source=mounted
func (h *TopologyHandler) ListSecrets(w http.ResponseWriter, r *http.Request) {
	secretType := r.URL.Query().Get("type")
	source := r.URL.Query().Get("source")

	summaries := []domain.SecretSummary{}
	if h.secrets != nil {
		for _, s := range h.secrets.SecretSummaries() {
			if secretType != "" && string(s.Type) != secretType {
				continue
			}
			if source != "" && string(s.Source) != source {
				continue
			}
			summaries = append(summaries, s)
		}
	}

	h.writeJSON(w, summaries, http.StatusOK)
}

// GetSecret returns a single secret summary (no sensitive data)
// GET /api/secrets/{id}
func (h *TopologyHandler) GetSecret(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if h.secrets != nil {
		for _, s := range h.secrets.SecretSummaries() {
			if s.ID == id {
				h.writeJSON(w, s, http.StatusOK)
				return
			}
		}
	}

	h.writeError(w, "Secret not found", "No secret with ID: "+id, http.StatusNotFound)
}
