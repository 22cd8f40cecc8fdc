// Package server provides the HTTP server for the helmetscan detection service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/helmetscan/internal/server/api"
	"github.com/ayusman/helmetscan/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir      string
	Store          *store.Store
	Detector       api.Detector
	ModelName      string
	AllowedOrigin  string
	MaxUploadBytes int64
	ThumbnailSide  int
}

// Server represents the HTTP server for the helmetscan application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	events  *EventHub
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		events: NewEventHub(config.AllowedOrigin),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = withCORS(config.AllowedOrigin, s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/events", s.events)

	// Register detection endpoint if a Detector is configured
	if s.config.Detector != nil {
		s.mux.Handle("/api/detect", api.NewDetectHandler(api.DetectConfig{
			Detector:       s.config.Detector,
			Store:          s.config.Store,
			Publisher:      s.events,
			MaxUploadBytes: s.config.MaxUploadBytes,
			ThumbnailSide:  s.config.ThumbnailSide,
		}))
	}

	// Register run history API if Store is configured
	if s.config.Store != nil {
		runsHandler := api.NewRunsHandler(s.config.Store, s.events)
		s.mux.Handle("/api/runs", runsHandler)
		s.mux.Handle("/api/runs/", runsHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Events returns the hub that broadcasts run events.
func (s *Server) Events() *EventHub {
	return s.events
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status":   "ok",
		"uptime":   uptime.String(),
		"model":    s.config.ModelName,
		"detector": s.config.Detector != nil,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
