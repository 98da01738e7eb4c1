// Package router arma el árbol de rutas chi del servicio.
package router

import (
	"net/http"

	healthctrl "github.com/dropDatabas3/widgetauth/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/widgetauth/internal/http/controllers/oauth"
	sessionctrl "github.com/dropDatabas3/widgetauth/internal/http/controllers/session"
	httperrors "github.com/dropDatabas3/widgetauth/internal/http/errors"
	mw "github.com/dropDatabas3/widgetauth/internal/http/middlewares"
	"github.com/dropDatabas3/widgetauth/internal/rate"
	"github.com/go-chi/chi/v5"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	OAuth   *oauthctrl.Controllers
	Session *sessionctrl.Controller
	Health  *healthctrl.HealthController

	// RequireLogin protege authorize/decision (sesión de login).
	RequireLogin mw.Middleware
	// Bearer protege las rutas /api (bearer gate contra /user/info).
	Bearer mw.Middleware

	// Limiters opcionales; nil deshabilita el rate limit del endpoint.
	LoginLimiter rate.Limiter
	TokenLimiter rate.Limiter

	CORSOrigins []string
	// Metrics expone /metrics si no es nil.
	Metrics http.Handler
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// orden: request id -> logging -> recover -> métricas -> headers
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithMetrics(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, d)
	registerSessionRoutes(r, d)
	registerOAuthRoutes(r, d)
	registerAPIRoutes(r, d)

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	return r
}
