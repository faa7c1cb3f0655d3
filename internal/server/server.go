// Package server is the local control surface: a small HTTP API the UI
// layer uses for cache diagnostics, pending-queue indicators, the manual
// sync trigger, and the offline-first feed read.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	huberrs "contenthub/internal/errors"
	"contenthub/internal/hub"
	"contenthub/internal/syncer"
)

type (
	// Cache is the accessor surface the server reads diagnostics from.
	Cache interface {
		Stats(ctx context.Context) (hub.CacheStats, error)
		PendingCount(ctx context.Context) (int, error)
	}

	// Engine is the sync engine surface exposed over HTTP.
	Engine interface {
		TriggerSync(ctx context.Context) (hub.SyncResult, error)
		FetchFeeds(ctx context.Context) (syncer.FeedsResult, error)
		Durable() bool
	}

	// Server handles the control API requests.
	Server struct {
		*http.Server

		cache  Cache
		engine Engine
	}

	Config struct {
		Port       int
		CorsOrigin string
	}
)

func New(cfg Config, cache Cache, engine Engine) *Server {
	var (
		r = errRouter{Router: mux.NewRouter()}
		s = &Server{
			cache:  cache,
			engine: engine,
		}
	)

	r.HandleFuncE("/v1/cache/stats", s.handleCacheStats).Methods(http.MethodGet)
	r.HandleFuncE("/v1/sync/pending", s.handlePending).Methods(http.MethodGet)
	r.HandleFuncE("/v1/sync", s.handleTriggerSync).Methods(http.MethodPost)
	r.HandleFuncE("/v1/feeds", s.handleFeeds).Methods(http.MethodGet)

	s.Server = &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: handlers.CORS(
			handlers.AllowedOrigins([]string{cfg.CorsOrigin}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"content-type"}),
		)(accessLogMiddleware(r)),
	}

	return s
}

type statsResp struct {
	hub.CacheStats

	// Durable flags whether the store survived its startup write probe;
	// false means the daemon is running network-only.
	Durable bool `json:"durable"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		return fmt.Errorf("error reading cache stats: %w", err)
	}

	return writeJSON(w, http.StatusOK, statsResp{
		CacheStats: stats,
		Durable:    s.engine.Durable(),
	})
}

type pendingResp struct {
	Count      int  `json:"count"`
	HasPending bool `json:"has_pending"`
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) error {
	count, err := s.cache.PendingCount(r.Context())
	if err != nil {
		return fmt.Errorf("error counting pending actions: %w", err)
	}

	return writeJSON(w, http.StatusOK, pendingResp{
		Count:      count,
		HasPending: count > 0,
	})
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) error {
	res, err := s.engine.TriggerSync(r.Context())
	if errors.Is(err, hub.ErrOffline) {
		return huberrs.E(http.StatusConflict, err)
	}
	if err != nil {
		return fmt.Errorf("error triggering sync: %w", err)
	}

	return writeJSON(w, http.StatusOK, res)
}

type feedsResp struct {
	Articles   []hub.Article `json:"articles"`
	FromCache  bool          `json:"from_cache"`
	LastUpdate *int64        `json:"last_update,omitempty"`
}

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) error {
	res, err := s.engine.FetchFeeds(r.Context())
	if errors.Is(err, hub.ErrConnectivityRequired) {
		return huberrs.E(http.StatusServiceUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("error fetching feeds: %w", err)
	}

	return writeJSON(w, http.StatusOK, feedsResp{
		Articles:   res.Articles,
		FromCache:  res.FromCache,
		LastUpdate: res.LastUpdate,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("error encoding json response: %s", err)
	}

	return nil
}

// HandlerFuncE is a modified type of [http.HandlerFunc] that returns an error.
type HandlerFuncE func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFuncE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}

	// Either it's already a structured error, or coerce it to one
	sErr := &huberrs.Error{}
	if !errors.As(err, &sErr) {
		slog.Error("unstructured handler error", "error", err)
		sErr = huberrs.E(http.StatusInternalServerError, "internal server error")
	}

	if err := writeJSON(w, sErr.Status, sErr); err != nil {
		slog.Error("error writing response", "error", err)
	}
}

// errRouter is a newtype around a mux router that allows attaching handlers that return errors.
type errRouter struct {
	*mux.Router
}

func (r errRouter) HandleFuncE(path string, f HandlerFuncE) *mux.Route {
	return r.Handle(path, f)
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		writer := &respCodeWriter{ResponseWriter: w}
		next.ServeHTTP(writer, r)

		slog.Info("request completed",
			"method", r.Method,
			"url", r.URL.String(),
			"duration", time.Since(start),
			"status_code", writer.code,
		)
	})
}

// To trap the response status code for logging later.
type respCodeWriter struct {
	http.ResponseWriter
	code int
}

func (w *respCodeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
