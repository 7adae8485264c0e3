package core

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status     string `json:"status"`
	Live       bool   `json:"live"`
	Ready      bool   `json:"ready"`
	Since      string `json:"since"`
	Detail     string `json:"detail"`
	RetryAfter *int   `json:"retry_after,omitempty"`
}

func (p *Portal) health(liveOnly bool) (int, HealthResponse) {
	resp := HealthResponse{
		Live:  true,
		Since: p.since.Format(time.RFC3339),
	}
	retry := func(s int) *int { return &s }

	switch {
	case liveOnly:
		resp.Status = "live"
		resp.Detail = "ok"
		return http.StatusOK, resp
	case p.draining.Load():
		resp.Status = "draining"
		resp.Detail = "shutting down"
		resp.RetryAfter = retry(30)
		return http.StatusServiceUnavailable, resp
	case !p.ready.Load():
		resp.Status = "starting"
		resp.Detail = "warming up"
		resp.RetryAfter = retry(5)
		return http.StatusServiceUnavailable, resp
	default:
		resp.Status = "ready"
		resp.Ready = true
		resp.Detail = "ok"
		return http.StatusOK, resp
	}
}

// handleHealth reports readiness, or liveness only with ?probe=live.
func (p *Portal) handleHealth(w http.ResponseWriter, r *http.Request) {
	p.writeHealth(w, r.URL.Query().Get("probe") == "live")
}

// handleReady reports readiness.
func (p *Portal) handleReady(w http.ResponseWriter, r *http.Request) {
	p.writeHealth(w, false)
}

func (p *Portal) writeHealth(w http.ResponseWriter, liveOnly bool) {
	status, resp := p.health(liveOnly)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
