package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/upb/publish-guard/app"
	"github.com/upb/publish-guard/handlers"
	"github.com/upb/publish-guard/internal/auth"
	"github.com/upb/publish-guard/middleware"
	"github.com/upb/publish-guard/utils"
)

// requestTimeout bounds every request, the guarded transition included
const requestTimeout = 30 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	logger := deps.Logger.Named("http")

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Observe(logger, deps.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.DB.DB, logger).WithAudit(deps.Audit)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	settingsHandler := handlers.NewSettingsHandler(deps.Settings, logger)
	itemHandler := handlers.NewItemHandler(deps.Items, logger)
	auditHandler := handlers.NewAuditHandler(deps.AuditLogs, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Locale(deps.DefaultLocale))
		r.Use(deps.AuthMiddleware.RequireAuth)

		// Guard settings
		r.Route("/settings", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireCapability(auth.CapabilityManageOptions))
			r.Get("/", settingsHandler.HandleGetSettings)
			r.Put("/post-types", settingsHandler.HandleUpdatePostTypes)
			r.Put("/minimum-size", settingsHandler.HandleUpdateMinimumSize)
		})

		// Guard decision trail
		r.Route("/audit", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireCapability(auth.CapabilityManageOptions))
			r.Get("/", auditHandler.HandleListByAction)
		})

		// Content items
		r.Route("/items", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireCapability(auth.CapabilityEditPosts))
			r.Post("/", itemHandler.HandleCreateItem)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.HandleGetItem)
				r.Put("/featured-image", itemHandler.HandleSetFeaturedImage)
				r.Delete("/featured-image", itemHandler.HandleClearFeaturedImage)
				r.Post("/status", itemHandler.HandleTransition)
				r.Get("/editor-bootstrap", itemHandler.HandleEditorBootstrap)
				r.With(deps.AuthMiddleware.RequireCapability(auth.CapabilityManageOptions)).
					Get("/audit", auditHandler.HandleListForItem)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
