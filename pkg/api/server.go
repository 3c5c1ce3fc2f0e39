// Package api dynattr REST API
//
// @title           dynattr REST API
// @version         1.0.0
// @description     Records with fixed columns and a MariaDB dynamic column of nested attributes.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"

	"github.com/ssargent/dynattr/pkg/ctxlog"
)

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	 <title>dynattr API Documentation</title>
	 <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	 <div id="swagger-ui"></div>
	 <script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	 <script>
	   window.onload = function() {
	     SwaggerUIBundle({
	       url: '/swagger/doc.json',
	       dom_id: '#swagger-ui',
	       presets: [
	         SwaggerUIBundle.presets.apis,
	         SwaggerUIBundle.presets.standalone
	       ]
	     });
	   };
	 </script>
</body>
</html>`

// NewRouter wires the routes of s. Metrics are served from gatherer.
func NewRouter(s *Server, gatherer prometheus.Gatherer) http.Handler {
	m := s.metrics
	logger := s.config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			l := logger.With(slog.String("request_id", middleware.GetReqID(req.Context())))
			next.ServeHTTP(w, req.WithContext(ctxlog.WithLogger(req.Context(), l)))
		})
	})

	// unprotected for scraping
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Post("/records", m.InstrumentHandler("POST", "/api/v1/records", s.handleCreateRecord))
		r.Get("/records", m.InstrumentHandler("GET", "/api/v1/records", s.handleListRecords))
		r.Get("/records/{id}", m.InstrumentHandler("GET", "/api/v1/records/{id}", s.handleGetRecord))
		r.Delete("/records/{id}", m.InstrumentHandler("DELETE", "/api/v1/records/{id}", s.handleDeleteRecord))

		r.Get("/records/{id}/attributes/{path}",
			m.InstrumentHandler("GET", "/api/v1/records/{id}/attributes/{path}", s.handleGetAttribute))
		r.Put("/records/{id}/attributes/{path}",
			m.InstrumentHandler("PUT", "/api/v1/records/{id}/attributes/{path}", s.handlePutAttribute))
		r.Delete("/records/{id}/attributes/{path}",
			m.InstrumentHandler("DELETE", "/api/v1/records/{id}/attributes/{path}", s.handleDeleteAttribute))

		r.Get("/records/{id}/fields", m.InstrumentHandler("GET", "/api/v1/records/{id}/fields", s.handleFields))
		r.Get("/records/{id}/expression", m.InstrumentHandler("GET", "/api/v1/records/{id}/expression", s.handleExpression))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/swagger/", "/swagger/index.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(swaggerUI))
		case "/swagger/doc.json":
			doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
			if err != nil {
				ctxlog.FromContext(req.Context()).Error("failed to render swagger doc", slog.Any("error", err))
				http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(doc))
		default:
			http.NotFound(w, req)
		}
	})

	return r
}

// StartServer serves the API until ctx is cancelled
func StartServer(ctx context.Context, store IRecordStore, config ServerConfig, gatherer prometheus.Gatherer) error {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	SwaggerInfo.Host = fmt.Sprintf("localhost:%d", config.Port)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(NewServer(store, config), gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		config.Logger.Info("starting dynattr REST API server", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		config.Logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
