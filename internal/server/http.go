// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const metricsEndpoint = "/metrics"

// RouteRegistrar mounts API routes on the router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// HTTPServer serves the lifecycle API and Prometheus metrics on one port.
type HTTPServer struct {
	server    *http.Server
	port      int
	registry  *prometheus.Registry
	api       RouteRegistrar
	readiness func() bool
}

// NewHTTPServer creates a new HTTP server instance. registry receives the
// runtime collectors and is exposed on /metrics.
func NewHTTPServer(port int, registry *prometheus.Registry, api RouteRegistrar, readiness func() bool) *HTTPServer {
	return &HTTPServer{
		port:      port,
		registry:  registry,
		api:       api,
		readiness: readiness,
	}
}

// Setup builds the router and registers the runtime collectors.
func (s *HTTPServer) Setup() error {
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Handle(metricsEndpoint, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.handleHealth)
	if s.api != nil {
		s.api.RegisterRoutes(r)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.readiness != nil && !s.readiness() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Start begins serving on the configured port.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("HTTP server listening on port %d (metrics at %s)", s.port, metricsEndpoint)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("HTTP server stopped")
	return nil
}
