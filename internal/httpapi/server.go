// Package httpapi exposes the recorder's HTTP surface: session start/stop,
// health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/synergix/vcall-recorder/pkg/recording"
)

// ServerOptions configures the HTTP server
type ServerOptions struct {
	Host string
	Port int
}

// Server is the recorder HTTP server
type Server struct {
	options      ServerOptions
	server       *http.Server
	orchestrator *recording.Orchestrator
	registry     *recording.Registry
	metrics      http.Handler
	logger       zerolog.Logger
	startTime    time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates the recorder HTTP server
func NewServer(options ServerOptions, orchestrator *recording.Orchestrator, registry *recording.Registry, metricsHandler http.Handler, logger zerolog.Logger) *Server {
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.Port == 0 {
		options.Port = 3000
	}
	return &Server{
		options:      options,
		orchestrator: orchestrator,
		registry:     registry,
		metrics:      metricsHandler,
		logger:       logger.With().Str("component", "httpapi").Logger(),
		startTime:    time.Now(),
	}
}

// Handler returns the route mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", s.withRequestTracking(s.handleStart))
	mux.HandleFunc("/stop", s.withRequestTracking(s.handleStop))
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics)
	return mux
}

// Start runs the server until Stop is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting recorder server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start recorder server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown recorder server: %w", err)
	}

	s.logger.Info().Msg("Recorder server stopped")
	return nil
}

func (s *Server) withRequestTracking(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			s.writeError(w, http.StatusServiceUnavailable, "", "server is shutting down")
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()
		next(w, r)
	}
}

// handleStart handles POST /start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}
	if req.URL == "" || req.Doctor == "" || req.Patient == "" {
		s.writeError(w, http.StatusBadRequest, "", "url, doctor and patient are required")
		return
	}

	result, err := s.orchestrator.Start(r.Context(), recording.StartRequest{
		Key:     req.Key,
		URL:     req.URL,
		Doctor:  req.Doctor,
		Patient: req.Patient,
	})
	if err != nil {
		s.writeRecordingError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, startResponse{
		Message:  "Recording started",
		Key:      result.Key,
		FileName: result.SourceFile,
		WorkDir:  result.WorkDir,
		URL:      result.URL,
	})
}

// handleStop handles POST /stop. The response acknowledges teardown; the
// pipeline continues asynchronously.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
		return
	}

	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}
	if req.Key == "" {
		s.writeError(w, http.StatusBadRequest, "", "key is required")
		return
	}

	if err := s.orchestrator.Stop(r.Context(), req.Key, req.CallID); err != nil {
		s.writeRecordingError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, stopResponse{
		Message: "Recording stopped, processing continues",
		Key:     req.Key,
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime":         time.Since(s.startTime).Seconds(),
		"activeSessions": s.registry.Len(),
		"timestamp":      time.Now().UnixMilli(),
	})
}

func (s *Server) writeRecordingError(w http.ResponseWriter, err error) {
	var re *recording.Error
	if !errors.As(err, &re) {
		s.writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch re.Code {
	case recording.ErrCodeAlreadyActive:
		status = http.StatusConflict
	case recording.ErrCodeNoActiveSession:
		status = http.StatusBadRequest
	}
	s.writeError(w, status, re.Code, re.Message)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{
		Success: false,
		Message: message,
		Code:    code,
	})
}
