// Package api serves schema-bound TSV datasets over HTTP.
//
// Routes under /api/v1 require the X-API-Key header. /metrics is left
// unprotected for scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
)

const shutdownTimeout = 10 * time.Second

// NewRouter builds the HTTP handler for server, exposing the metrics
// gathered by gatherer on /metrics
func NewRouter(server *Server, gatherer prometheus.Gatherer) http.Handler {
	metrics := server.metrics

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(server.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))
		r.Get("/schemas", metrics.InstrumentHandler("GET", "/api/v1/schemas", server.handleListSchemas))
		r.Post("/validate", metrics.InstrumentHandler("POST", "/api/v1/validate", server.handleValidate))

		// Datasets
		r.Get("/datasets", metrics.InstrumentHandler("GET", "/api/v1/datasets", server.handleListDatasets))
		r.Post("/datasets", metrics.InstrumentHandler("POST", "/api/v1/datasets", server.handleCreateDataset))
		r.Get("/datasets/{id}", metrics.InstrumentHandler("GET", "/api/v1/datasets/{id}", server.handleGetDataset))
		r.Delete("/datasets/{id}", metrics.InstrumentHandler("DELETE", "/api/v1/datasets/{id}", server.handleDeleteDataset))
		r.Put("/datasets/{id}/records",
			metrics.InstrumentHandler("PUT", "/api/v1/datasets/{id}/records", server.handleImportRecords))
		r.Get("/datasets/{id}/records",
			metrics.InstrumentHandler("GET", "/api/v1/datasets/{id}/records", server.handleExportRecords))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully
func StartServer(ctx context.Context, store DatasetStore, registry *schema.Registry, config ServerConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	server := NewServer(store, registry, config, NewMetrics(reg), logger)
	srv := &http.Server{
		Addr:              net.JoinHostPort(config.Bind, fmt.Sprint(config.Port)),
		Handler:           NewRouter(server, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting tsvio API server",
			zap.String("addr", srv.Addr),
			zap.Strings("schemas", server.registry.Names()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
