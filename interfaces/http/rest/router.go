package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"cmseditor/application/commands/bus"
	querybus "cmseditor/application/queries/bus"
	"cmseditor/interfaces/http/rest/handlers"
	"cmseditor/interfaces/http/rest/middleware"
	"cmseditor/pkg/auth"
	pkgerrors "cmseditor/pkg/errors"
	"cmseditor/pkg/observability"
)

// RouterOptions holds the settings the router needs from configuration
type RouterOptions struct {
	InLambda       bool
	EnableCORS     bool
	CORSOrigins    []string
	FormRateLimit  int
	SessionMaxIdle time.Duration
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *pkgerrors.ErrorHandler
	validator    *auth.JWTValidator
	formLimiter  auth.RateLimiter
	tracer       *observability.Tracer
	checks       map[string]handlers.ReadinessCheck
	opts         RouterOptions
	logger       *zap.Logger
}

// NewRouter creates a new router instance. validator may be nil inside
// Lambda where API Gateway authorizes requests.
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	validator *auth.JWTValidator,
	formLimiter auth.RateLimiter,
	tracer *observability.Tracer,
	checks map[string]handlers.ReadinessCheck,
	opts RouterOptions,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		validator:    validator,
		formLimiter:  formLimiter,
		tracer:       tracer,
		checks:       checks,
		opts:         opts,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.tracer.Middleware(rt.opts.InLambda))
	router.Use(versionMiddleware)

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	health := handlers.NewHealthHandler(rt.checks, rt.logger)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)

	// Public application form
	forms := handlers.NewFormHandler(rt.commandBus, rt.errorHandler, rt.logger)
	router.Route("/forms", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rt.formLimiter, rt.opts.FormRateLimit, rt.logger))
		r.Post("/application", forms.SubmitApplication)
	})

	router.Route("/api/v2", func(r chi.Router) {
		if rt.opts.InLambda {
			r.Use(middleware.AuthenticateForLambda(rt.logger))
		} else {
			r.Use(middleware.Authenticate(rt.validator, rt.logger))
		}
		r.Use(middleware.RequireRole(auth.RoleEditor, auth.RoleAdmin))

		editorHandler := handlers.NewEditorHandler(rt.commandBus, rt.queryBus, rt.errorHandler, rt.logger)
		r.Route("/editor", func(r chi.Router) {
			r.Get("/", editorHandler.Edit)
			r.Post("/", editorHandler.Edit)
			r.Get("/session", editorHandler.Session)
			r.Get("/locales", editorHandler.Locales)
		})
		r.Get("/editors/select", editorHandler.SelectEditor)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			admin := handlers.NewAdminHandler(rt.commandBus, rt.queryBus, rt.errorHandler, rt.opts.SessionMaxIdle, rt.logger)
			r.Post("/cleanup", admin.Cleanup)
			r.Get("/tasks", admin.Tasks)
		})
	})

	return router
}

// versionMiddleware adds API version headers to API responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("X-API-Version", "v2")
		}
		next.ServeHTTP(w, r)
	})
}
