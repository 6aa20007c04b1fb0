// Package api provides the HTTP REST API server for FilingIQ.
//
// It exposes endpoints for question answering, raw expression evaluation,
// metric computation, and structured record ingestion.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/filingiq/internal/agent"
	"github.com/seenimoa/filingiq/internal/calc"
	"github.com/seenimoa/filingiq/internal/config"
	"github.com/seenimoa/filingiq/internal/metrics"
	"github.com/seenimoa/filingiq/internal/store"
	"github.com/seenimoa/filingiq/pkg/models"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	pipeline *agent.Pipeline
	store    *store.Store
}

// NewServer creates a configured API server with all routes and middleware.
// The store may be nil; answer requests then rely on context-supplied inputs.
func NewServer(cfg *config.Config, pipeline *agent.Pipeline, st *store.Store) *Server {
	srv := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		store:    st,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/healthz", s.handleHealth)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)

		// Question answering (single and batch)
		r.Post("/answer", s.handleAnswer)
		r.Post("/answer/batch", s.handleAnswerBatch)

		// Raw sandboxed expression evaluation
		r.Post("/calc", s.handleCalc)

		// Direct metric computation
		r.Post("/compute", s.handleCompute)

		// Structured record ingestion
		r.Post("/records", s.handleIngest)
	})

	return r
}

// ════════════════════════════════════════════════════════════════════
// Request / response types
// ════════════════════════════════════════════════════════════════════

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CalcRequest is the body for POST /v1/calc.
type CalcRequest struct {
	Expression string `json:"expression"`
}

// ComputeRequest is the body for POST /v1/compute.
type ComputeRequest struct {
	MetricID string            `json:"metric_id"`
	Period   models.Period     `json:"period"`
	Inputs   map[string]string `json:"inputs"`
	Rounding *metrics.Rounding `json:"rounding,omitempty"`
}

// IngestRequest is the body for POST /v1/records.
type IngestRequest struct {
	Records []store.Record `json:"records"`
}

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status": "ok",
		},
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var q models.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if q.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	env := s.pipeline.Answer(r.Context(), q)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    env,
	})
}

func (s *Server) handleAnswerBatch(w http.ResponseWriter, r *http.Request) {
	var questions []models.Question
	if err := json.NewDecoder(r.Body).Decode(&questions); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(questions) == 0 {
		writeError(w, http.StatusBadRequest, "at least one question is required")
		return
	}

	envs, err := s.pipeline.AnswerBatch(r.Context(), questions, s.cfg.Compute.BatchWorkers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    envs,
	})
}

func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Expression == "" {
		writeError(w, http.StatusBadRequest, "expression is required")
		return
	}

	result, err := calc.Evaluate(req.Expression)
	if err != nil {
		// Sandbox rejections are caller errors, not server faults.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]string{"result": result},
	})
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MetricID == "" {
		writeError(w, http.StatusBadRequest, "metric_id is required")
		return
	}

	rounding := metrics.DefaultRounding()
	if req.Rounding != nil {
		rounding = *req.Rounding
	}

	result, err := metrics.Compute(req.MetricID, req.Period, req.Inputs, rounding)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "at least one record is required")
		return
	}

	if err := s.store.PutBatch(r.Context(), req.Records); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]int{"ingested": len(req.Records)},
	})
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
