package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthInfo is the non-secret runtime configuration reported by the
// "config" health action.
type HealthInfo struct {
	ActiveChainID int64  `json:"active_chain_id"`
	ContentStore  string `json:"content_store"`
	StatusStore   string `json:"status_store"`
	Auth          bool   `json:"auth"`
}

type HealthHandler struct {
	info HealthInfo
}

func NewHealthHandler(info HealthInfo) *HealthHandler { return &HealthHandler{info: info} }

// Ping answers "ping" for liveness checks and "config" for deploy checks.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "config":
		writeJSON(w, http.StatusOK, h.info)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
