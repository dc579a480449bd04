package handlers

import (
	"net/http"
	"time"
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"online":      len(s.Hub.OnlineUsers()),
			"server_time": time.Now(),
		})
	}
}

// HandleMetrics reports the in-process counters.
func (s *Server) HandleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		requests, errors, uptime := s.Metrics.Snapshot()
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"requests":   requests,
			"errors":     errors,
			"uptime":     uptime.String(),
			"operations": s.Metrics.OperationSnapshot(),
		})
	}
}
