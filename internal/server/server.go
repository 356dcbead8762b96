package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osse101/BrandishDuels_Go/internal/duel"
	"github.com/osse101/BrandishDuels_Go/internal/handler"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
	"github.com/osse101/BrandishDuels_Go/internal/metrics"
	"github.com/osse101/BrandishDuels_Go/internal/sse"
)

// Options configures the HTTP surface
type Options struct {
	Port           int
	APIKey         string
	TrustedProxies []string
	CORSOrigins    []string
	// Backend names the storage backend reported by /readyz
	Backend string
	Health  handler.HealthChecker
	// Gatherer backs /metrics and the admin status digest; nil means the default registry
	Gatherer prometheus.Gatherer
	Clock    clockwork.Clock
}

type Server struct {
	httpServer *http.Server
	router     chi.Router
}

// NewServer wires the duel API, SSE stream and operational endpoints
func NewServer(opts Options, duelService duel.Service, hub *sse.Hub) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	r := chi.NewRouter()

	// Chi middleware executes in order defined (outermost to innermost)
	detector := NewSuspiciousActivityDetector(opts.Clock)

	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware())
	r.Use(CORSMiddleware(opts.CORSOrigins))
	r.Use(AuthMiddleware(opts.APIKey, opts.TrustedProxies, detector))
	r.Use(RateLimitMiddleware(opts.TrustedProxies, detector))
	r.Use(RequestSizeLimitMiddleware(MaxRequestBodyBytes))
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	r.Get(PathHealthz, handler.HandleHealthz())
	r.Get(PathReadyz, handler.HandleReadyz(opts.Backend, opts.Health))
	r.Get(PathVersion, handler.HandleVersion())
	r.Handle(PathMetrics, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	duelHandler := handler.NewDuelHandler(duelService)
	adminHandler := handler.NewAdminHandler(duelService, hub, opts.Gatherer)

	r.Route(PathAPI, func(r chi.Router) {
		r.Get("/events", sse.Handler(hub))

		r.Route("/duels", duelHandler.Routes)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/status", adminHandler.HandleGetStatus)
			r.Post("/sse/broadcast", adminHandler.HandleBroadcast)
		})
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           r,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
	// Shutdown waits for open streams, so end them first
	httpServer.RegisterOnShutdown(hub.Stop)

	return &Server{httpServer: httpServer, router: r}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if strings.HasPrefix(r.URL.Path, PathHealthz) ||
			strings.HasPrefix(r.URL.Path, PathReadyz) ||
			strings.HasPrefix(r.URL.Path, PathMetrics) {
			next.ServeHTTP(w, r)
			return
		}

		requestID := logger.GenerateRequestID()
		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		log := logger.FromContext(ctx)

		log.Info(LogMsgRequestStarted,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength,
			"user_agent", r.UserAgent())

		sanitizedHeaders := make(http.Header)
		for k, v := range r.Header {
			if strings.EqualFold(k, HeaderAPIKey) || strings.EqualFold(k, HeaderAuthorization) {
				sanitizedHeaders[k] = []string{RedactedValue}
			} else {
				sanitizedHeaders[k] = v
			}
		}
		log.Debug(LogMsgRequestHeaders, "headers", sanitizedHeaders)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Info(LogMsgRequestCompleted,
			"method", r.Method,
			"path", r.URL.Path,
			"status", max(ww.Status(), http.StatusOK),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// Start serves until Stop is called; it returns http.ErrServerClosed after a graceful stop
func (s *Server) Start() error {
	slog.Default().Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	slog.Default().Info(LogMsgServerStopping)
	return s.httpServer.Shutdown(ctx)
}
