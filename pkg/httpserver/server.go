package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ravenmarkets/raven-engine/pkg/healthprobe"
	"go.uber.org/zap"
)

// Server provides the HTTP API plus metrics and health endpoints.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port               string
	Logger             *zap.Logger
	HealthChecker      *healthprobe.HealthChecker
	Handler            *Handler
	Hub                *Hub
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metricsMiddleware)

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	// Event stream (if a hub is provided)
	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWS)
	}

	// Engine API (if a handler is provided)
	if cfg.Handler != nil {
		h := cfg.Handler
		r.Route("/api", func(r chi.Router) {
			if cfg.RateLimitPerSecond > 0 {
				limiter := newIPLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
				r.Use(limiter.middleware)
			}

			r.Post("/bets", h.HandlePlaceBet)
			r.Post("/rounds/process", h.HandleProcessRound)
			r.Post("/rounds/redeem", h.HandleRedeemBatch)
			r.Post("/rounds/close", h.HandleCloseRound)

			r.Get("/markets", h.HandleListMarkets)
			r.Post("/markets", h.HandleCreateMarket)
			r.Post("/markets/{marketID}/pause", h.HandlePauseMarket)
			r.Post("/markets/{marketID}/resume", h.HandleResumeMarket)
			r.Get("/markets/{marketID}/rounds/{roundIndex}", h.HandleGetRound)

			r.Get("/feeds", h.HandleListFeeds)
			r.Post("/feeds", h.HandleAddFeed)
			r.Delete("/feeds/{symbol}", h.HandleRemoveFeed)

			r.Put("/incentives", h.HandleSetIncentives)
			r.Get("/status", h.HandleStatus)
		})
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// metricsMiddleware records request counts and latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		RequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
