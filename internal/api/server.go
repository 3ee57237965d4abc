package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/kestrel/internal/activity"
	"github.com/opensource-finance/kestrel/internal/assess"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, c domain.Cache, bus domain.EventBus, engine *rules.Engine, assessor *assess.Assessor, tracker *activity.Tracker, version string) *Server {
	handler := NewHandler(repo, c, bus, engine, assessor, tracker, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Operational endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Get("/stats", handler.Stats)

	// API routes (tenant required)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(TenantMiddleware)
		r.Use(RateLimitMiddleware(cfg.RateLimitRPS))

		// Question catalog
		r.Get("/questionnaire", handler.GetQuestionnaire)

		// Client management
		r.Post("/clients", handler.CreateClient)
		r.Get("/clients", handler.ListClients)
		r.Get("/clients/{id}", handler.GetClient)
		r.Put("/clients/{id}", handler.UpdateClient)
		r.Delete("/clients/{id}", handler.DeleteClient)

		// Financial records
		r.Post("/clients/{id}/incomes", handler.AddIncome)
		r.Get("/clients/{id}/incomes", handler.ListIncomes)
		r.Delete("/clients/{id}/incomes/{recordId}", handler.DeleteIncome)
		r.Post("/clients/{id}/expenditures", handler.AddExpenditure)
		r.Get("/clients/{id}/expenditures", handler.ListExpenditures)
		r.Delete("/clients/{id}/expenditures/{recordId}", handler.DeleteExpenditure)
		r.Post("/clients/{id}/assets", handler.AddAsset)
		r.Get("/clients/{id}/assets", handler.ListAssets)
		r.Delete("/clients/{id}/assets/{recordId}", handler.DeleteAsset)
		r.Post("/clients/{id}/liabilities", handler.AddLiability)
		r.Get("/clients/{id}/liabilities", handler.ListLiabilities)
		r.Delete("/clients/{id}/liabilities/{recordId}", handler.DeleteLiability)
		r.Post("/clients/{id}/goals", handler.AddGoal)
		r.Get("/clients/{id}/goals", handler.ListGoals)
		r.Delete("/clients/{id}/goals/{recordId}", handler.DeleteGoal)

		// Derived metrics
		r.Get("/clients/{id}/metrics", handler.GetMetrics)

		// Assessments
		r.Post("/clients/{id}/assessments", handler.RunAssessment)
		r.Get("/clients/{id}/assessments", handler.ListClientAssessments)
		r.Get("/assessments/{id}", handler.GetAssessment)

		// Flag rule management
		r.Get("/flag-rules", handler.ListFlagRules)
		r.Get("/flag-rules/{id}", handler.GetFlagRule)
		r.Post("/flag-rules", handler.CreateFlagRule)
		r.Delete("/flag-rules/{id}", handler.DeleteFlagRule)
		r.Post("/flag-rules/reload", handler.ReloadFlagRules)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
