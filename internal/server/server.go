// Package server exposes the price analysis pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"PriceSentinel/internal/analyzer"
	"PriceSentinel/internal/recipe"
	"PriceSentinel/internal/recorder"
)

// MaxBatchItems caps the number of items in one analyze request.
const MaxBatchItems = 100

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	Analyzer *analyzer.Analyzer
	Tracker  *analyzer.Tracker
	Coster   *recipe.Coster

	router  chi.Router
	started time.Time
}

// New builds the router. timeout bounds each request; zero disables it.
func New(a *analyzer.Analyzer, tr *analyzer.Tracker, c *recipe.Coster, timeout time.Duration) *Server {
	s := &Server{Analyzer: a, Tracker: tr, Coster: c, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/normalize", s.handleNormalize)
		r.Get("/market", s.handleMarket)
		r.Post("/compare", s.handleCompare)
		r.Post("/analyze", s.handleAnalyze)

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", s.handleCreatePurchase)
			r.Get("/", s.handleListPurchases)
			r.Get("/{id}/analysis", s.handlePurchaseAnalysis)
			r.Post("/{id}/refresh", s.handleRefreshPurchase)
		})

		r.Post("/recipes/cost", s.handleRecipeCost)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// respondStoreError maps storage errors to 404 or 500.
func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, recorder.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "purchase not found")
		return
	}
	log.Error().Err(err).Msg("storage error")
	respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}
