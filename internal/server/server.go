package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"parking-garage/internal/logging"
	"parking-garage/internal/session"
)

type Options struct {
	Port            string
	ServiceName     string
	DefaultCapacity int
	MaxCapacity     int
	Tracer          trace.Tracer
}

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(opts Options, sessions *session.Manager) *Server {
	handler := NewHandler(sessions, opts.ServiceName, opts.DefaultCapacity, opts.MaxCapacity)
	registry := newRegistry(sessions)

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware(opts.Tracer))
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}).ServeHTTP)

	r.Route("/api/garages", func(r chi.Router) {
		r.Post("/", handler.CreateGarage)
		r.Get("/", handler.ListGarages)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", handler.DeleteGarage)
			r.Get("/status", handler.GetStatus)
			r.Post("/arrive", handler.Arrive)
			r.Post("/depart", handler.Depart)
		})
	})
	r.Get("/api/plates/random", handler.RandomPlate)

	httpServer := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
