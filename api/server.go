// Package api provides the HTTP REST API server for EquityPilot.
//
// It exposes the analysis pipeline over POST /analyze plus health and
// configuration introspection endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/raghavkal/equitypilot/internal/config"
	"github.com/raghavkal/equitypilot/pkg/models"
)

// maxTickerLen bounds the accepted ticker symbol length.
const maxTickerLen = 10

// analyzeTimeout bounds one full pipeline run triggered over HTTP.
const analyzeTimeout = 5 * time.Minute

// Analyzer runs one full analysis. *pipeline.Pipeline satisfies it.
type Analyzer interface {
	Run(ctx context.Context, ticker, userQuery string) *models.AnalysisState
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	analyzer Analyzer
	log      *zap.Logger
	version  string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, analyzer Analyzer, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		log:      log,
		version:  version,
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
		WriteTimeout: analyzeTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal("HTTP server error", zap.Error(err))
		}
	}()
	s.log.Info("API server listening", zap.String("addr", addr))

	<-done
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(analyzeTimeout + 30*time.Second))

	origins := []string{"*"}
	if s.cfg != nil && len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/config/keys", s.handleGetConfigKeys)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /analyze. The question field is
// user_query; query is accepted as a shorthand alias.
type AnalyzeRequest struct {
	Ticker     string `json:"ticker"`
	UserQuery  string `json:"user_query,omitempty"`
	QueryAlias string `json:"query,omitempty"`
}

// Query returns the user's question, preferring user_query over the alias.
func (r *AnalyzeRequest) Query() string {
	if q := strings.TrimSpace(r.UserQuery); q != "" {
		return q
	}
	return strings.TrimSpace(r.QueryAlias)
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"service": "EquityPilot",
			"version": s.version,
			"endpoints": []string{
				"GET /health",
				"POST /analyze",
				"GET /api/v1/config/keys",
			},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": s.version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if len(ticker) > maxTickerLen {
		writeError(w, http.StatusBadRequest, "ticker must be 10 characters or fewer")
		return
	}

	query := req.Query()
	if query == "" {
		query = "Should I invest in " + ticker + "?"
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	start := time.Now()
	state := s.analyzer.Run(ctx, ticker, query)
	s.log.Info("analysis served",
		zap.String("ticker", ticker),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("errors", len(state.Errors)))

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    state,
	})
}

func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	keys := config.CheckAPIKeys(s.cfg)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    keys,
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
