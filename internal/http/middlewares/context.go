package middlewares

import (
	"context"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/session"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxIdentityKey  ctxKey = "identity"
	ctxSessionKey   ctxKey = "session"
	ctxAccountKey   ctxKey = "account"
)

// Identity es lo que el bearer gate adjunta al request: la vista pública del
// principal (audience) y el scope del token.
type Identity struct {
	Credentials map[string]any
	Scope       string
}

// ID devuelve el _id del principal, si vino en las credenciales.
func (i Identity) ID() string {
	s, _ := i.Credentials["_id"].(string)
	return s
}

// =================================================================================
// SETTERS
// =================================================================================

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// WithIdentity inyecta la identidad validada por el gate.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

// WithSession inyecta la sesión de login y la cuenta cargada.
func WithSession(ctx context.Context, s session.Session, a *repository.Account) context.Context {
	ctx = context.WithValue(ctx, ctxSessionKey, s)
	return context.WithValue(ctx, ctxAccountKey, a)
}

// =================================================================================
// GETTERS
// =================================================================================

// GetRequestID devuelve "" si WithRequestID no corrió.
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}

// GetIdentity devuelve la identidad del bearer gate.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey).(Identity)
	return id, ok
}

// GetSession devuelve la sesión cargada por RequireLogin.
func GetSession(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(ctxSessionKey).(session.Session)
	return s, ok
}

// GetAccount devuelve la cuenta logueada (nil fuera de RequireLogin).
func GetAccount(ctx context.Context) *repository.Account {
	a, _ := ctx.Value(ctxAccountKey).(*repository.Account)
	return a
}
