package oauth

import (
	"errors"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/widgetauth/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/widgetauth/internal/http/errors"
	mw "github.com/dropDatabas3/widgetauth/internal/http/middlewares"
	"github.com/dropDatabas3/widgetauth/internal/oauth"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
)

// UserInfoController maneja GET /user/info, el endpoint de introspección que
// consultan los resource servers (ver internal/userinfo).
type UserInfoController struct {
	service IntrospectService
}

func NewUserInfoController(s IntrospectService) *UserInfoController {
	return &UserInfoController{service: s}
}

// UserInfo acepta el token como ?access_token= o Authorization: Bearer.
// Un token inválido es 400; una falla del store es 503, nunca invalid_token.
func (c *UserInfoController) UserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UserInfoController.UserInfo"))

	w.Header().Add("Vary", "Authorization")

	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		token, _ = mw.BearerToken(r)
	}
	if token == "" {
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_token", "")
		return
	}

	in, err := c.service.Introspect(ctx, token)
	if errors.Is(err, oauth.ErrInvalidToken) {
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_token", "")
		return
	}
	if err != nil {
		log.Error("introspection failed", logger.Err(err))
		httperrors.WriteOAuthError(w, http.StatusServiceUnavailable, "server_error", "token store unavailable")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	httperrors.WriteJSON(w, http.StatusOK, dto.UserInfoResponse{
		Audience:  in.Subject.Public(),
		Scope:     in.Scope,
		ExpiresIn: in.ExpiresIn,
		IsValid:   true,
	})
}
