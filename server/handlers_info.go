package server

import (
	"fmt"
	"net/http"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	p := s.adapter.Profile()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Welcome to " + p.Name(),
		"role":     p.Role(),
		"agent_id": p.ID(),
		"endpoints": []string{
			"/query - POST: Send a task to the agent",
			"/stream - POST: Stream agent progress in real-time",
			"/info - GET: Get agent information",
			"/health - GET: Check service health",
		},
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	p := s.adapter.Profile()
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": p.ID(),
		"name":     p.Name(),
		"role":     p.Role(),
		"tools":    p.Tools(),
		"status":   "active",
		"features": p.Features(),
		"runtime":  s.adapter.RuntimeName(),
	})
}

func (s *Server) handleFrontendInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backend_url":     fmt.Sprintf("http://localhost:%d", s.opts.BackendPort),
		"frontend_url":    fmt.Sprintf("http://localhost:%d", s.opts.FrontendPort),
		"cors_enabled":    true,
		"connection_test": "ready",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	p := s.adapter.Profile()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"agent":         p.Name(),
		"role":          p.Role(),
		"cors_enabled":  true,
		"backend_port":  s.opts.BackendPort,
		"frontend_port": s.opts.FrontendPort,
		"timestamp":     s.timestamp(),
	})
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "CORS preflight OK"})
}
