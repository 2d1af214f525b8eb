package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/sysverax/somerville-mobile-sub000/docs"
	"github.com/sysverax/somerville-mobile-sub000/internal/api/catalog"
	"github.com/sysverax/somerville-mobile-sub000/internal/api/repair"
	"github.com/sysverax/somerville-mobile-sub000/internal/api/resolution"
	"github.com/sysverax/somerville-mobile-sub000/internal/api/user"
	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/cache"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/middleware"
)

// Handlers are the initialized endpoint groups.
type Handlers struct {
	Catalog    *catalog.Handler
	Repair     *repair.Handler
	Resolution *resolution.Handler
	User       *user.Handler
}

// Options configures the global middleware stack. Rate limiting is off when Cache is nil.
type Options struct {
	Tokens          middleware.TokenValidator
	Cache           cache.Client
	RateLimit       int
	RateLimitWindow time.Duration
	Logger          logger.Logger
}

// NewRouter wires every route and wraps the mux in the global middlewares.
func NewRouter(h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()
	admin := func(fn http.HandlerFunc) http.Handler {
		return middleware.RequireRole(domain.RoleAdmin)(fn)
	}

	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Users
	mux.HandleFunc("POST /v1/users/register", h.User.RegisterUserHandler)
	mux.HandleFunc("POST /v1/users/login", h.User.LoginUserHandler)

	// Catalog hierarchy
	mux.Handle("POST /v1/catalog/{level}", admin(h.Catalog.CreateNodeHandler))
	mux.HandleFunc("GET /v1/catalog/{level}", h.Catalog.ListNodesHandler)
	mux.HandleFunc("GET /v1/catalog/{level}/{id}", h.Catalog.GetNodeHandler)
	mux.Handle("PATCH /v1/catalog/{level}/{id}", admin(h.Catalog.UpdateNodeHandler))
	mux.Handle("PUT /v1/catalog/{level}/{id}/active", admin(h.Catalog.SetNodeActiveHandler))
	mux.HandleFunc("GET /v1/catalog/{level}/{id}/visibility", h.Catalog.GetVisibilityHandler)

	// Service catalog
	mux.Handle("POST /v1/services", admin(h.Repair.CreateServiceHandler))
	mux.HandleFunc("GET /v1/services", h.Repair.ListServicesHandler)
	mux.HandleFunc("GET /v1/services/{id}", h.Repair.GetServiceHandler)
	mux.HandleFunc("GET /v1/services/{id}/variants", h.Repair.ListVariantsHandler)
	mux.Handle("PATCH /v1/services/{id}", admin(h.Repair.UpdateServiceHandler))
	mux.Handle("PUT /v1/services/{id}/active", admin(h.Repair.SetServiceActiveHandler))
	mux.Handle("DELETE /v1/services/{id}", admin(h.Repair.DeleteServiceHandler))

	// Resolution and overrides
	mux.HandleFunc("GET /v1/products/{id}/services", h.Resolution.ResolveServicesHandler)
	mux.Handle("GET /v1/products/{id}/services/{serviceId}/override", admin(h.Resolution.GetOverrideHandler))
	mux.Handle("PUT /v1/products/{id}/services/{serviceId}/override", admin(h.Resolution.SetOverrideHandler))
	mux.Handle("DELETE /v1/products/{id}/services/{serviceId}/override", admin(h.Resolution.ClearOverrideHandler))
	mux.Handle("PUT /v1/products/{id}/services/{serviceId}/disabled", admin(h.Resolution.SetDisabledHandler))

	mws := []func(http.Handler) http.Handler{middleware.RequestLogger(opts.Logger)}
	if opts.Cache != nil {
		mws = append(mws, middleware.RateLimiter(opts.Cache, opts.RateLimit, opts.RateLimitWindow, opts.Logger))
	}
	mws = append(mws, middleware.OptionalAuth(opts.Tokens))

	return middleware.Chain(mux, mws...)
}

// PingHandler is the health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
