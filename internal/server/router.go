package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studyhall-hq/studyhall/internal/api"
	"github.com/studyhall-hq/studyhall/internal/api/handlers"
	"github.com/studyhall-hq/studyhall/internal/api/middleware"
	"github.com/studyhall-hq/studyhall/internal/metrics"
)

// Pinger reports whether the backing store is reachable. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	AuthValidator     middleware.AuthValidator
	SearchHandler     *handlers.SearchHandler
	DocumentHandler   *handlers.DocumentHandler
	TenantHandler     *handlers.TenantHandler
	AttendanceHandler *handlers.AttendanceHandler
	APIKeyHandler     *handlers.APIKeyHandler
	DB                Pinger
	MaxBodyBytes      int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Leaves headroom over the upload cap for multipart framing.
	const defaultMaxBodyBytes int64 = 12 * 1024 * 1024

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			if err := cfg.DB.Ping(r.Context()); err != nil {
				api.Error(w, http.StatusServiceUnavailable, "database unreachable")
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/search", cfg.SearchHandler.Search)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/download", cfg.DocumentHandler.Download)
			r.Delete("/", cfg.DocumentHandler.Delete)
		})

		r.Route("/tenants", func(r chi.Router) {
			r.Post("/sync", cfg.TenantHandler.Sync)
			r.Get("/", cfg.TenantHandler.List)
			r.Get("/me", cfg.TenantHandler.Me)
			r.Post("/me/onboarding", cfg.TenantHandler.CompleteOnboarding)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/", cfg.AttendanceHandler.Mark)
			r.Get("/summary", cfg.AttendanceHandler.Summary)
		})

		r.Route("/apikeys", func(r chi.Router) {
			r.Post("/", cfg.APIKeyHandler.Create)
			r.Get("/", cfg.APIKeyHandler.List)
			r.Delete("/{id}", cfg.APIKeyHandler.Revoke)
		})
	})

	return r
}
