package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matchdayhq/media-service/pkg/health"
	"github.com/matchdayhq/media-service/pkg/middleware"

	"github.com/matchdayhq/media-service/internal/service"
)

// RouterConfig holds the handler-level settings the router needs.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
	MaxUploadBytes int64
	SharedMaxAge   int
}

// NewRouter creates a chi router with all media service routes registered.
func NewRouter(
	mediaService *service.MediaService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("media-service"))
	r.Use(middleware.PrometheusMetrics("media"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.TrustedIdentity)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// Media API endpoints
	mediaHandler := NewMediaHandler(mediaService, logger, cfg.MaxUploadBytes)

	sharedMaxAge := cfg.SharedMaxAge
	if sharedMaxAge <= 0 {
		sharedMaxAge = 60
	}

	r.Route("/api/v1/media", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", mediaHandler.Upload)
		r.Get("/", mediaHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(sharedMaxAge))
			r.Get("/shared/{token}", mediaHandler.GetShared)
		})

		r.Get("/{id}", mediaHandler.Get)
		r.Delete("/{id}", mediaHandler.Delete)
		r.Post("/{id}/view", mediaHandler.RecordView)
		r.Post("/{id}/download", mediaHandler.Download)
	})

	return r
}
