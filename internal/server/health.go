package server

import (
	"net/http"

	"github.com/desertthunder/musicvid/internal/shared"
)

// HealthStatus is the body served by [HealthHandler].
type HealthStatus struct {
	Status  string `json:"status"`
	Viewers int    `json:"viewers"`
}

// HealthHandler reports liveness and the number of connected viewers.
type HealthHandler struct {
	viewers func() int
}

// NewHealthHandler creates a health handler. viewers may be nil.
func NewHealthHandler(viewers func() int) *HealthHandler {
	return &HealthHandler{viewers: viewers}
}

func (h *HealthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "ok"}
	if h.viewers != nil {
		status.Viewers = h.viewers()
	}

	data, err := shared.MarshalJSON(status, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
