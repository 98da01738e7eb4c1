// Package api contiene las rutas de ejemplo protegidas por el bearer gate.
package api

import (
	"net/http"

	httperrors "github.com/dropDatabas3/widgetauth/internal/http/errors"
	mw "github.com/dropDatabas3/widgetauth/internal/http/middlewares"
)

// MeResponse devuelve la identidad que el gate adjuntó al request.
type MeResponse struct {
	Credentials map[string]any `json:"credentials"`
	Scope       string         `json:"scope"`
}

// Me maneja GET /api/me.
func Me(w http.ResponseWriter, r *http.Request) {
	id, ok := mw.GetIdentity(r.Context())
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httperrors.WriteJSON(w, http.StatusOK, MeResponse{Credentials: id.Credentials, Scope: id.Scope})
}
