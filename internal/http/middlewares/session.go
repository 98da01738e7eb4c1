package middlewares

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/http/errors"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/session"
)

// AccountLoader re-lee la cuenta de la sesión en cada request (*oauth.Identity).
type AccountLoader interface {
	DeserializeAccount(ctx context.Context, id string) (*repository.Account, error)
}

// RequireLogin exige una sesión de login válida y carga la cuenta al contexto.
// Sin sesión, los GET se redirigen a loginPath?return_to=<uri>; el resto recibe 401
// porque el body no puede reenviarse después del login.
func RequireLogin(sm *session.Manager, accounts AccountLoader, loginPath string) Middleware {
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.From(r.Context()).With(logger.Component("require_login"))

			s, ok, err := sm.Current(r)
			if err != nil {
				log.Error("session lookup failed", logger.Err(err))
				errors.WriteError(w, errors.ErrServiceUnavailable.WithCause(err))
				return
			}
			if !ok {
				toLogin(w, r, loginPath)
				return
			}

			acc, err := accounts.DeserializeAccount(r.Context(), s.AccountID)
			if repository.IsNotFound(err) {
				// la cuenta fue borrada: la sesión ya no vale
				log.Info("session account gone, logging out", logger.UserID(s.AccountID))
				_ = sm.Logout(w, r)
				toLogin(w, r, loginPath)
				return
			}
			if err != nil {
				log.Error("session account lookup failed", logger.Err(err))
				errors.WriteError(w, errors.ErrServiceUnavailable.WithCause(err))
				return
			}

			ctx := WithSession(r.Context(), s, acc)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(acc.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func toLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		errors.WriteError(w, errors.ErrUnauthorized.WithDetail("login required"))
		return
	}
	target := loginPath + "?" + url.Values{"return_to": {r.URL.RequestURI()}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}
