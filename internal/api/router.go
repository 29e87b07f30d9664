package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"video-downloader/internal/handlers"
	"video-downloader/internal/state"
	"video-downloader/internal/telemetry"
	"video-downloader/web"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Downloader handlers.Downloader
	State      *state.ServerState
	Metrics    *telemetry.Metrics // nil disables /metrics
}

// NewRouter wires every route of the server.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", telemetry.RequestIDHeader},
		ExposedHeaders: []string{"Content-Disposition", telemetry.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/", handlers.HomeHandler)
	r.Handle("/static/*", http.FileServer(http.FS(web.Static)))

	r.Post("/download", handlers.DownloadHandler(deps.Downloader, deps.Metrics))
	r.Get("/api/state", handlers.ServerStateHandler(deps.State))
	r.Get("/healthz", handlers.HealthHandler)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}
