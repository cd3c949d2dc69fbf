// Package httpapi is the thin diagnostic/export HTTP façade described in
// SPEC_FULL.md §6: visibility into positions, health, alerts, executions
// and statistics, plus position add/remove, trade simulation and alert
// acknowledgement, layered on top of the engine
// library. The engine itself has no network dependency; this package is
// additive tooling, not part of the core contract.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Engine is the subset of the façade's behavior the HTTP layer drives.
// Defined here, rather than imported from package engine, so httpapi
// depends only on shapes it actually calls.
type Engine interface {
	ListPositions() []domain.Position
	GetPosition(id uuid.UUID) (domain.Position, error)
	AddPosition(ctx context.Context, position domain.Position) (uuid.UUID, error)
	RemovePosition(id uuid.UUID) error
	GetPositionHealth(ctx context.Context, id uuid.UUID) (domain.HealthFactor, error)
	SimulateTradeImpact(ctx context.Context, positionID uuid.UUID, tradeType domain.TradeType, token domain.TokenAddress, amount decimal.Decimal) (domain.TradeSimulation, error)
	GetAlerts(positionID *uuid.UUID) []domain.RiskAlert
	AcknowledgeAlert(alertID uuid.UUID) error
	GetStatistics() domain.Statistics
	ExecutionHistory() []domain.ExecutionRecord
	DailyStats() domain.DailyExecutionStats
	RiskParameters() domain.RiskParameters
	AutomationEnabled() bool
}

// Config holds server construction parameters.
type Config struct {
	Port    int
	Engine  Engine
	Log     zerolog.Logger
	DevMode bool
}

// Server is the chi-routed HTTP diagnostic façade.
type Server struct {
	router *chi.Mux
	server *http.Server
	engine Engine
	log    zerolog.Logger
}

// New constructs a Server; call Start to begin listening.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		engine: cfg.Engine,
		log:    cfg.Log.With().Str("component", "httpapi").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)

		r.Route("/positions", func(r chi.Router) {
			r.Get("/", s.handleListPositions)
			r.Post("/", s.handleAddPosition)
			r.Get("/{id}", s.handleGetPosition)
			r.Delete("/{id}", s.handleRemovePosition)
			r.Get("/{id}/health", s.handleGetPositionHealth)
			r.Post("/{id}/simulate", s.handleSimulateTradeImpact)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleGetAlerts)
			r.Post("/{id}/ack", s.handleAcknowledgeAlert)
		})

		r.Get("/executions", s.handleExecutionHistory)
		r.Get("/diagnostics", s.handleDiagnostics)
	})
}

// Handler returns the routed http.Handler, for tests that want to drive
// the façade via httptest without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. It blocks until the server stops or errors.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP diagnostic façade")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Msg("http request")
	})
}
