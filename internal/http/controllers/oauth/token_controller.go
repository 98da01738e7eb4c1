package oauth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/audit"
	"github.com/dropDatabas3/widgetauth/internal/auth"
	httperrors "github.com/dropDatabas3/widgetauth/internal/http/errors"
	"github.com/dropDatabas3/widgetauth/internal/oauth"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/store"
)

const grantClientCredentials = "client_credentials"

// TokenController maneja POST /oauth/token.
type TokenController struct {
	service AuthorizeService
	clients ClientAuthenticator
}

func NewTokenController(s AuthorizeService, clients ClientAuthenticator) *TokenController {
	return &TokenController{service: s, clients: clients}
}

// Token autentica al cliente (Basic primero, luego client_id/client_secret en
// el body) y emite un token client_credentials.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.token"))

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "invalid form data")
		return
	}

	client, ok, err := c.clients.AuthenticateClient(ctx, r, auth.StrategyClientBasic, auth.StrategyClientPassword)
	if err != nil {
		log.Error("client authentication failed", logger.Err(err))
		httperrors.WriteOAuthError(w, http.StatusServiceUnavailable, "server_error", "authorization server temporarily unavailable")
		return
	}
	if !ok {
		audit.Log(ctx, audit.EventClientFailure, logger.ClientID(r.PostForm.Get("client_id")))
		w.Header().Set("WWW-Authenticate", `Basic realm="Client Authentication"`)
		httperrors.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}
	log = log.With(logger.ClientID(client.ClientID))

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))
	switch grantType {
	case grantClientCredentials:
	case "":
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "grant_type is required")
		return
	default:
		log.Debug("unsupported grant", logger.String("grant_type", grantType))
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "grant type not supported")
		return
	}

	g, err := c.service.ClientCredentials(ctx, client, strings.TrimSpace(r.PostForm.Get("scope")))
	switch {
	case err == nil:
	case errors.Is(err, oauth.ErrInvalidScope):
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_scope", "requested scope is invalid or not allowed")
		return
	case store.IsTransport(err):
		log.Error("token issuance failed: store unavailable", logger.Err(err))
		httperrors.WriteOAuthError(w, http.StatusServiceUnavailable, "server_error", "authorization server temporarily unavailable")
		return
	default:
		log.Error("token issuance failed", logger.Err(err))
		httperrors.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "an unexpected error occurred")
		return
	}

	audit.Log(ctx, audit.EventTokenIssued,
		logger.String("grant", grantClientCredentials),
		logger.ClientID(client.ClientID),
		logger.String("scope", g.Scope))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	httperrors.WriteJSON(w, http.StatusOK, g)
}
