package middlewares

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/http/errors"
	"github.com/dropDatabas3/widgetauth/internal/metrics"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/userinfo"
)

// TokenValidator resuelve un bearer token contra el backend de introspección.
// *userinfo.Client es la implementación remota.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (userinfo.Result, error)
}

const bearerRealm = `Bearer realm="api"`

// BearerToken extrae el token de "Authorization: Bearer <token>". El header debe
// ser exactamente dos partes separadas por un único espacio; el esquema se
// compara sin mayúsculas. Tabs o espacios dobles lo invalidan.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireBearer valida el bearer token y adjunta la Identity al contexto.
//
//   - header ausente o malformado: 401 con challenge, sin introspección
//   - token inválido: 401 error="invalid_token"
//   - backend respondió válido con payload roto: 500 BACKEND_INTEGRITY
//   - reintentos agotados: 503 BACKEND_UNAVAILABLE
func RequireBearer(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				metrics.GateResults.WithLabelValues("bad_header").Inc()
				w.Header().Set("WWW-Authenticate", bearerRealm)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}

			res, err := v.Validate(r.Context(), token)
			switch {
			case err == nil:
			case stderrors.Is(err, userinfo.ErrInvalidToken):
				metrics.GateResults.WithLabelValues("invalid").Inc()
				w.Header().Set("WWW-Authenticate", bearerRealm+`, error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			case stderrors.Is(err, userinfo.ErrIntegrity):
				metrics.GateResults.WithLabelValues("integrity").Inc()
				logger.From(r.Context()).Error("introspection backend integrity failure",
					logger.Component("bearer_gate"), logger.Err(err))
				errors.WriteError(w, errors.ErrBackendIntegrity.WithCause(err))
				return
			default:
				metrics.GateResults.WithLabelValues("unavailable").Inc()
				logger.From(r.Context()).Warn("introspection backend unavailable",
					logger.Component("bearer_gate"), logger.Err(err))
				errors.WriteError(w, errors.ErrBackendUnavailable.WithCause(err))
				return
			}

			metrics.GateResults.WithLabelValues("ok").Inc()
			id := Identity{Credentials: res.Credentials, Scope: res.Scope}
			ctx := WithIdentity(r.Context(), id)
			if uid := id.ID(); uid != "" {
				ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(uid)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
