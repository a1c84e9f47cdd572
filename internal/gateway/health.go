package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string   `json:"status"`
	Path     string   `json:"path"`
	Toolsets []string `json:"toolsets"`
	Uptime   string   `json:"uptime"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Path:     g.config.Path,
			Toolsets: g.config.Toolsets,
		}
		if !g.startedAt.IsZero() {
			resp.Uptime = time.Since(g.startedAt).Round(time.Second).String()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
