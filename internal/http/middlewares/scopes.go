package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/http/errors"
	"github.com/dropDatabas3/widgetauth/internal/oauth"
)

func normalizeScopes(scopes []string) []string {
	var need []string
	for _, s := range scopes {
		if n := strings.TrimSpace(s); n != "" {
			need = append(need, n)
		}
	}
	return need
}

func insufficientScope(w http.ResponseWriter, need []string, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(need, " ")+`"`)
	errors.WriteError(w, errors.ErrInsufficientScopes.WithDetail(detail))
}

// RequireScope exige el scope en la identidad adjunta por RequireBearer.
// Un token con "*" satisface cualquier scope.
func RequireScope(scope string) Middleware {
	return RequireAllScopes(scope)
}

// RequireAllScopes exige todos los scopes.
func RequireAllScopes(scopes ...string) Middleware {
	need := normalizeScopes(scopes)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if !ok {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("no identity in context"))
				return
			}
			for _, n := range need {
				if !oauth.HasScope(id.Scope, n) {
					insufficientScope(w, []string{n}, "missing scope: "+n)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyScope exige AL MENOS UNO de los scopes.
func RequireAnyScope(scopes ...string) Middleware {
	need := normalizeScopes(scopes)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if !ok {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("no identity in context"))
				return
			}
			if len(need) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			for _, n := range need {
				if oauth.HasScope(id.Scope, n) {
					next.ServeHTTP(w, r)
					return
				}
			}
			insufficientScope(w, need, "required scope (any of): "+strings.Join(need, ", "))
		})
	}
}
