package oauth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/audit"
	dto "github.com/dropDatabas3/widgetauth/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/widgetauth/internal/http/errors"
	mw "github.com/dropDatabas3/widgetauth/internal/http/middlewares"
	"github.com/dropDatabas3/widgetauth/internal/oauth"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/store"
)

// AuthorizeController maneja GET /oauth/authorize y POST /oauth/authorize/decision.
// Ambos corren detrás de RequireLogin.
type AuthorizeController struct {
	service      AuthorizeService
	decisionPath string
}

func NewAuthorizeController(s AuthorizeService, decisionPath string) *AuthorizeController {
	if decisionPath == "" {
		decisionPath = "/oauth/authorize/decision"
	}
	return &AuthorizeController{service: s, decisionPath: decisionPath}
}

// Authorize maneja GET /oauth/authorize (implicit grant, response_type=token).
// Los errores de validación nunca redirigen: el redirect_uri todavía no está verificado.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Authorize"))

	w.Header().Add("Vary", "Cookie")

	q := r.URL.Query()
	req := oauth.AuthorizeRequest{
		ResponseType: strings.TrimSpace(q.Get("response_type")),
		ClientID:     strings.TrimSpace(q.Get("client_id")),
		RedirectURI:  strings.TrimSpace(q.Get("redirect_uri")),
		Scope:        strings.TrimSpace(q.Get("scope")),
		State:        q.Get("state"),
	}
	log.Debug("authorize request", logger.ClientID(req.ClientID), logger.String("scope", req.Scope))

	sess, _ := mw.GetSession(ctx)
	user := mw.GetAccount(ctx)

	out, err := c.service.Request(ctx, sess.ID, user, req)
	if err != nil {
		writeAuthorizeError(w, r, err)
		return
	}

	switch out.State {
	case oauth.StateAwaitingUser:
		w.Header().Set("Cache-Control", "no-store")
		httperrors.WriteJSON(w, http.StatusOK, dto.ConsentResponse{
			Status:        "awaiting_user",
			TransactionID: out.Transaction.ID,
			Client:        dto.ConsentClient{ClientID: out.Client.ClientID, Name: out.Client.Name},
			Scope:         out.Transaction.Scope,
			User:          user.Public(),
			DecisionURL:   c.decisionPath,
		})
	default:
		if out.Grant != nil {
			audit.Log(ctx, audit.EventTokenIssued,
				logger.String("grant", "implicit"),
				logger.ClientID(out.Client.ClientID),
				logger.UserID(user.ID),
				logger.String("scope", out.Grant.Scope))
		}
		redirect(w, r, out.RedirectURL)
	}
}

// Decision maneja POST /oauth/authorize/decision. Acepta form o JSON con
// transaction_id; "cancel" presente o allow=false deniegan.
func (c *AuthorizeController) Decision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Decision"))

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
	req, err := parseDecision(r)
	if err != nil {
		log.Debug("invalid decision body", logger.Err(err))
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "invalid decision body")
		return
	}

	sess, _ := mw.GetSession(ctx)
	out, err := c.service.Decide(ctx, sess.ID, mw.GetAccount(ctx), req)
	if err != nil {
		writeAuthorizeError(w, r, err)
		return
	}
	log.Info("authorization decided",
		logger.TransactionID(req.TransactionID),
		logger.String("result", out.State.String()))
	if out.Grant != nil {
		audit.Log(ctx, audit.EventConsentAllow, logger.TransactionID(req.TransactionID))
		audit.Log(ctx, audit.EventTokenIssued,
			logger.String("grant", "implicit"),
			logger.ClientID(out.Client.ClientID),
			logger.UserID(mw.GetAccount(ctx).ID),
			logger.String("scope", out.Grant.Scope))
	} else {
		audit.Log(ctx, audit.EventConsentDeny, logger.TransactionID(req.TransactionID))
	}
	redirect(w, r, out.RedirectURL)
}

func parseDecision(r *http.Request) (oauth.DecisionRequest, error) {
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		var body dto.DecisionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return oauth.DecisionRequest{}, err
		}
		allow := body.Cancel == "" && (body.Allow == nil || *body.Allow)
		return oauth.DecisionRequest{TransactionID: strings.TrimSpace(body.TransactionID), Allow: allow}, nil
	}

	if err := r.ParseForm(); err != nil {
		return oauth.DecisionRequest{}, err
	}
	allow := !r.PostForm.Has("cancel")
	if v := r.PostForm.Get("allow"); allow && v != "" {
		b, err := strconv.ParseBool(v)
		allow = err == nil && b
	}
	return oauth.DecisionRequest{
		TransactionID: strings.TrimSpace(r.PostForm.Get("transaction_id")),
		Allow:         allow,
	}, nil
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	http.Redirect(w, r, location, http.StatusFound)
}

func writeAuthorizeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.From(r.Context())
	switch {
	case errors.Is(err, oauth.ErrUnsupportedResponseType):
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "unsupported_response_type", "only response_type=token is supported")
	case errors.Is(err, oauth.ErrInvalidRequest):
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "missing required parameters")
	case errors.Is(err, oauth.ErrInvalidScope):
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_scope", "requested scope is invalid or not allowed")
	case errors.Is(err, oauth.ErrInvalidClient):
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_client", "client not found")
	case errors.Is(err, oauth.ErrInvalidRedirect):
		httperrors.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "redirect_uri does not match the registered value")
	case errors.Is(err, oauth.ErrLoginRequired):
		httperrors.WriteOAuthError(w, http.StatusUnauthorized, "login_required", "user session required")
	case errors.Is(err, oauth.ErrTransactionNotFound):
		httperrors.WriteOAuthError(w, http.StatusForbidden, "access_denied", "unable to load authorization transaction")
	case store.IsTransport(err):
		log.Error("authorize: store unavailable", logger.Err(err))
		httperrors.WriteOAuthError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "authorization server temporarily unavailable")
	default:
		log.Error("authorize failed", logger.Err(err))
		httperrors.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "an unexpected error occurred")
	}
}
