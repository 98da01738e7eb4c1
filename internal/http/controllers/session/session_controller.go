// Package session contiene los controllers de login/logout del usuario final.
// La UI es externa: GET /login sólo describe cómo autenticarse.
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/audit"
	"github.com/dropDatabas3/widgetauth/internal/auth"
	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	dto "github.com/dropDatabas3/widgetauth/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/widgetauth/internal/http/errors"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/session"
)

const maxLoginBodySize = 64 << 10 // 64KB

// PasswordAuthenticator valida username/password (estrategia local).
type PasswordAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*repository.Account, bool, error)
}

// Controller maneja /login y /logout.
type Controller struct {
	strategy PasswordAuthenticator
	sessions *session.Manager
}

func NewController(strategy PasswordAuthenticator, sessions *session.Manager) *Controller {
	return &Controller{strategy: strategy, sessions: sessions}
}

// LoginPage maneja GET /login.
func (c *Controller) LoginPage(w http.ResponseWriter, r *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, dto.LoginHint{
		Message:  "POST username and password to /login",
		Fields:   []string{"username", "password", "return_to"},
		ReturnTo: safeReturnTo(r.URL.Query().Get("return_to")),
	})
}

// Login maneja POST /login (JSON o form). Con return_to válido redirige;
// si no, devuelve la cuenta pública.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("session.Login"), logger.Strategy(auth.StrategyLocal))

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodySize)
	defer r.Body.Close()

	var req dto.LoginRequest
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "application/json"):
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.WriteError(w, httperrors.ErrInvalidJSON)
			return
		}
	default:
		if err := r.ParseForm(); err != nil {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid form"))
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		req.ReturnTo = r.PostForm.Get("return_to")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("username and password are required"))
		return
	}

	acc, ok, err := c.strategy.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		log.Error("login: account lookup failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	if !ok {
		audit.Log(ctx, audit.EventLoginFailure, logger.Username(req.Username))
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
		return
	}

	if _, err := c.sessions.Login(ctx, w, r, acc.ID); err != nil {
		log.Error("login: session create failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	audit.Log(ctx, audit.EventLoginSuccess, logger.UserID(acc.ID), logger.Username(acc.Username))

	if to := safeReturnTo(req.ReturnTo); to != "" {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httperrors.WriteJSON(w, http.StatusOK, dto.LoginResponse{User: acc.Public()})
}

// Logout maneja GET /logout.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.sessions.Logout(w, r); err != nil {
		logger.From(r.Context()).Warn("logout: session delete failed", logger.Err(err))
	}
	audit.Log(r.Context(), audit.EventLogout)
	httperrors.WriteJSON(w, http.StatusOK, dto.LogoutResponse{Status: "logged_out"})
}

// safeReturnTo acepta sólo paths locales ("/x", nunca "//host" ni URLs absolutas).
func safeReturnTo(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") || strings.HasPrefix(v, "/\\") {
		return ""
	}
	return v
}
