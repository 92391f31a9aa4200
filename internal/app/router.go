package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/valhalla/console/internal/auth"
	"github.com/valhalla/console/internal/observability"
	"github.com/valhalla/console/internal/rbac"
	rbachttp "github.com/valhalla/console/internal/rbac/http"
	"github.com/valhalla/console/internal/resources"
	"github.com/valhalla/console/internal/shared"
	"github.com/valhalla/console/internal/view"
	"github.com/valhalla/console/jobs"
	"github.com/valhalla/console/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Templates        *view.Engine
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	Registry         *rbac.Registry
	AuthService      *auth.Service
	AuthHandler      *auth.Handler
	ResourcesHandler *resources.Handler
	RBACHandler      *rbachttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	var restore func(http.Handler) http.Handler
	if params.AuthService != nil {
		restore = params.AuthService.Middleware
	}
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Restore:        restore,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		state := auth.StateFromContext(r.Context())
		if !state.Authenticated() {
			http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
			return
		}
		target := params.Registry.ResolveDefaultPathForRole(state.Role())
		if target == "/" {
			target = rbac.AppPrefix
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	})

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}

	r.Route(rbac.AppPrefix, func(r chi.Router) {
		if params.ResourcesHandler != nil {
			params.ResourcesHandler.MountRoutes(r)
		}
		if params.AuthHandler != nil {
			params.AuthHandler.MountAccountRoutes(r)
		}
		if params.RBACHandler != nil {
			params.RBACHandler.MountRoutes(r)
			r.Route("/api", func(r chi.Router) {
				if params.Config != nil && len(params.Config.CORSAllowedOrigins) > 0 {
					r.Use(cors.Handler(corsOptions(params.Config.CORSAllowedOrigins)))
				}
				params.RBACHandler.MountAPI(r)
			})
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.NotFound(notFoundHandler(logger, params.Templates, params.CSRFManager))

	return r
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", shared.CSRFHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func notFoundHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, _ := csrf.EnsureToken(r.Context(), sess)
		data := view.TemplateData{Title: "No encontrado", CSRFToken: token, Flash: sess.PopFlash()}
		if err := templates.RenderRequest(w, r, http.StatusNotFound, "pages/not_found.html", data); err != nil {
			logger.Error("render not found", slog.Any("error", err))
			http.NotFound(w, r)
		}
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
