// Package api is the admin HTTP surface of the server: health, runtime
// stats, Prometheus metrics and tracing setup. It never touches the key
// space directly; all it reads are atomic counters.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dhrubo326/imds/internal/aof"
	"github.com/dhrubo326/imds/internal/store"
)

// Handler serves the admin endpoints.
type Handler struct {
	store   *store.Store
	log     *aof.Log
	started time.Time
}

// NewHandler creates an admin handler over the store and its AOF log.
// The log may be nil when persistence is disabled.
func NewHandler(st *store.Store, log *aof.Log) *Handler {
	return &Handler{
		store:   st,
		log:     log,
		started: time.Now(),
	}
}

// HealthStatus is the /healthz response body.
type HealthStatus struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "ok",
		Uptime:    time.Since(h.started).String(),
		Timestamp: time.Now(),
	})
}

// StatsResponse is the /stats response body.
type StatsResponse struct {
	Store store.Metrics `json:"store"`
	AOF   AOFStats      `json:"aof"`
}

// AOFStats summarizes the append-only log.
type AOFStats struct {
	Enabled bool  `json:"enabled"`
	Records int64 `json:"records"`
	Bytes   int64 `json:"bytes"`
}

// Stats reports store and AOF counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Store: h.store.Metrics()}
	if h.log != nil {
		appends, bytes := h.log.Stats()
		resp.AOF = AOFStats{Enabled: true, Records: appends, Bytes: bytes}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
