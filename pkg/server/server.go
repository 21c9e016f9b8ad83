// Package server exposes signals, histories and relations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/internal/scheduler"
	"github.com/elonfeng/trendradar/internal/store"
	"github.com/elonfeng/trendradar/pkg/relation"
	"github.com/elonfeng/trendradar/pkg/signal"
	"github.com/elonfeng/trendradar/pkg/timeseries"
)

// candidateLimit bounds the signals loaded as relation candidates.
const candidateLimit = 500

// Options configures a Server.
type Options struct {
	Port       int
	Relations  *relation.Engine
	Classifier *timeseries.Classifier
	// CollectPerMinute limits POST /api/v1/collect per client IP.
	CollectPerMinute int
}

// Server provides the HTTP API.
type Server struct {
	store      store.Store
	runner     scheduler.Runner
	relations  *relation.Engine
	classifier *timeseries.Classifier
	opts       Options
}

// New creates a new HTTP server. runner may be nil, in which case
// collection over HTTP is unavailable.
func New(s store.Store, runner scheduler.Runner, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.Relations == nil {
		opts.Relations = relation.NewEngine(relation.DefaultOptions())
	}
	if opts.Classifier == nil {
		opts.Classifier = timeseries.NewClassifier(timeseries.DefaultRisingThreshold)
	}
	if opts.CollectPerMinute <= 0 {
		opts.CollectPerMinute = 6
	}
	return &Server{
		store:      s,
		runner:     runner,
		relations:  opts.Relations,
		classifier: opts.Classifier,
		opts:       opts,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/signals", s.handleSignals)
		r.Get("/signals/{id}/related", s.handleRelated)
		r.Get("/history/{keyword}", s.handleHistory)
		r.Get("/clusters", s.handleClusters)
		r.With(httprate.LimitByIP(s.opts.CollectPerMinute, time.Minute)).Post("/collect", s.handleCollect)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Component("server").Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Component("server").Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOpts{Limit: 100}
	if v := q.Get("origin"); v != "" {
		opts.Origin = signal.Origin(v)
	}
	if v := q.Get("category"); v != "" {
		opts.Category = signal.ParseCategory(v)
	}
	if v := q.Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_score must be an integer")
			return
		}
		opts.MinScore = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		opts.Since = t
	}

	signals, err := s.store.ListSignals(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": signals, "count": len(signals)})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, err := s.store.GetSignal(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "signal not found")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	candidates, err := s.store.ListSignals(ctx, store.ListOpts{Limit: candidateLimit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	related := s.relations.FindRelated(*target, candidates, limit)
	writeJSON(w, http.StatusOK, map[string]any{"signal": target, "data": related, "count": len(related)})
}

type historyResponse struct {
	signal.History
	DurationHours float64 `json:"duration_hours"`
	AverageScore  float64 `json:"average_score"`
	IsRising      bool    `json:"is_rising"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.store.History(r.Context(), chi.URLParam(r, "keyword"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h == nil {
		writeError(w, http.StatusNotFound, "no history")
		return
	}

	analyzed := s.classifier.Analyze(*h)
	writeJSON(w, http.StatusOK, historyResponse{
		History:       analyzed,
		DurationHours: timeseries.Duration(analyzed),
		AverageScore:  timeseries.AverageScore(analyzed),
		IsRising:      s.classifier.IsRising(analyzed),
	})
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	signals, err := s.store.ListSignals(r.Context(), store.ListOpts{Limit: candidateLimit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  relation.OrderedClusters(signals),
		"terms": relation.ExtractCoOccurring(signals, relation.DefaultMinOccurrence),
	})
}

type adapterResult struct {
	Adapter string `json:"adapter"`
	Signals int    `json:"signals"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "collection is not configured")
		return
	}

	run, err := s.runner.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	adapters := make([]adapterResult, len(run.Outcomes))
	for i, o := range run.Outcomes {
		adapters[i] = adapterResult{Adapter: o.Adapter, Signals: o.Signals}
		if o.Err != nil {
			adapters[i].Error = o.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signals":  len(run.Signals),
		"rising":   len(run.Rising),
		"alerted":  run.Alerted,
		"adapters": adapters,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
