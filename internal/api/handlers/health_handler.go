package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/isdelr/profile-view/internal/session"
)

// HealthHandler reports liveness and the number of mounted views.
type HealthHandler struct {
	sessions  *session.Registry
	startedAt time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(sessions *session.Registry) *HealthHandler {
	return &HealthHandler{sessions: sessions, startedAt: time.Now()}
}

// Get handles GET /healthz.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"sessions":  h.sessions.Len(),
		"startedAt": h.startedAt.Format(time.RFC3339),
	})
}
