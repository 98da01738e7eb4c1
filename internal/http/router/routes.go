package router

import (
	"net/http"

	"github.com/dropDatabas3/widgetauth/internal/http/controllers/api"
	mw "github.com/dropDatabas3/widgetauth/internal/http/middlewares"
	"github.com/go-chi/chi/v5"
)

// /healthz y /readyz son públicos.
func registerHealthRoutes(r chi.Router, d Deps) {
	if d.Health == nil {
		return
	}
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
}

func registerSessionRoutes(r chi.Router, d Deps) {
	if d.Session == nil {
		return
	}
	c := d.Session

	r.Get("/login", c.LoginPage)
	r.Method(http.MethodPost, "/login", mw.ChainFunc(c.Login,
		mw.WithNoStore(),
		mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.LoginLimiter, KeyFunc: mw.IPOnlyRateKey, Endpoint: "login"}),
	))
	r.Get("/logout", c.Logout)
}

func registerOAuthRoutes(r chi.Router, d Deps) {
	if d.OAuth == nil {
		return
	}
	c := d.OAuth

	// authorize + decision: requieren usuario logueado
	r.Method(http.MethodGet, "/oauth/authorize", mw.ChainFunc(c.Authorize.Authorize, d.RequireLogin))
	r.Method(http.MethodPost, "/oauth/authorize/decision", mw.ChainFunc(c.Authorize.Decision, d.RequireLogin))

	// token: autenticación de cliente, sin sesión
	r.Method(http.MethodPost, "/oauth/token", mw.ChainFunc(c.Token.Token,
		mw.WithNoStore(),
		mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.TokenLimiter, KeyFunc: mw.IPOnlyRateKey, Endpoint: "token"}),
	))

	// introspección para resource servers
	r.Method(http.MethodGet, "/user/info", mw.ChainFunc(c.UserInfo.UserInfo, mw.WithNoStore()))
}

// /api: ejemplo de resource server detrás del bearer gate.
func registerAPIRoutes(r chi.Router, d Deps) {
	if d.Bearer == nil {
		return
	}
	r.Method(http.MethodGet, "/api/me", mw.ChainFunc(api.Me,
		d.Bearer,
		mw.RequireAnyScope("admin", "user", "contributor"),
	))
}
