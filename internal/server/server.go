// Package server provides the HTTP REST API for the voice audit service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/voice-audit/internal/pipeline"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
)

// Pipeline is the part of the audit pipeline the handlers drive.
type Pipeline interface {
	Bootstrap(ctx context.Context, profile types.Profile) (string, error)
	Run(ctx context.Context, profileID, runID string) error
	GeneratePrompts(ctx context.Context, profileID string, category types.Category, count int) ([]types.Prompt, error)
	AddPrompt(ctx context.Context, profileID string, category types.Category, text string) (*types.Prompt, error)
	RefreshReport(ctx context.Context, profileID string) (*types.OverallReport, error)
}

var _ Pipeline = (*pipeline.Runner)(nil)

// Config holds server configuration.
type Config struct {
	Port      int
	JWTSecret string
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	store      store.Store
	runner     Pipeline
	auth       *authService
}

// New creates a new server instance over an already-connected store.
func New(cfg Config, st store.Store, runner Pipeline) *Server {
	s := &Server{
		store:  st,
		runner: runner,
	}
	if cfg.JWTSecret != "" {
		s.auth = newAuthService(cfg.JWTSecret)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // SSE streams and long pipeline waits
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /profiles/{id}/bootstrap", s.requireAuth(s.handleBootstrap))
	mux.HandleFunc("POST /profiles/{id}/prompts", s.requireAuth(s.handleAddPrompt))
	mux.HandleFunc("POST /profiles/{id}/prompts/generate", s.requireAuth(s.handleGeneratePrompts))
	mux.HandleFunc("POST /profiles/{id}/report/refresh", s.requireAuth(s.handleRefreshReport))

	mux.HandleFunc("GET /profiles/{id}/prompts", s.handleListPrompts)
	mux.HandleFunc("GET /profiles/{id}/report", s.handleGetReport)
	mux.HandleFunc("GET /profiles/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /profiles/{id}/events", s.handleEvents)

	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start begins listening and blocks until an interrupt, then shuts down
// gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.store.Close()
	log.Println("Server stopped")
	return nil
}

// Handler exposes the full middleware-wrapped handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS adds CORS headers for the dashboard.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
