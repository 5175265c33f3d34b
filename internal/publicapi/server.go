// Package publicapi implements Livermore's read-only public HTTP API:
// the one outward-facing surface, kept deliberately narrow by a DTO
// whitelist that never forwards an internal cache or database shape
// verbatim.
package publicapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/obsmetrics"
)

// Server is the public read API's HTTP listener.
type Server struct {
	router *mux.Router
	http   *http.Server
}

// Config controls the listener and timeouts.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func DefaultConfig(port int) Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer wires every public route behind the shared middleware chain.
func NewServer(cfg Config, h *Handlers, metrics *obsmetrics.Registry) *Server {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)
	router.Use(metricsMiddleware(metrics))
	router.Use(jsonContentType)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := router.PathPrefix("/public/v1").Subrouter()
	v1.HandleFunc("/exchanges", h.ListExchanges).Methods(http.MethodGet)
	v1.HandleFunc("/exchanges/{exchange}/status", h.InstanceStatus).Methods(http.MethodGet)
	v1.HandleFunc("/exchanges/{exchange}/symbols", h.ListSymbols).Methods(http.MethodGet)
	v1.HandleFunc("/exchanges/{exchange}/candles/{symbol}/{timeframe}", h.Candles).Methods(http.MethodGet)
	v1.HandleFunc("/exchanges/{exchange}/indicators/{symbol}/{timeframe}/{type}", h.Indicator).Methods(http.MethodGet)
	v1.HandleFunc("/exchanges/{exchange}/signals/{symbol}", h.Signals).Methods(http.MethodGet)
	v1.HandleFunc("/exchanges/{exchange}/alerts/{symbol}", h.RecentAlerts).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(notFound)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		router: router,
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.http.Addr).Msg("public API listening")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", time.Since(start)).
			Msg("public api request")
	})
}

func metricsMiddleware(metrics *obsmetrics.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			wrapped := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			route := r.URL.Path
			if m := mux.CurrentRoute(r); m != nil {
				if tmpl, err := m.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			metrics.HTTPRequestDuration.WithLabelValues(route, r.Method, fmt.Sprintf("%d", wrapped.status)).Observe(time.Since(start).Seconds())
		})
	}
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", errNotFound)
}
