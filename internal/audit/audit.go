// Package audit emite eventos de seguridad (login, consentimiento, emisión de
// tokens) por un logger dedicado "audit". Nunca incluye secretos ni tokens completos.
package audit

import (
	"context"

	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	EventLoginSuccess  = "login.success"
	EventLoginFailure  = "login.failure"
	EventLogout        = "logout"
	EventConsentAllow  = "consent.allow"
	EventConsentDeny   = "consent.deny"
	EventTokenIssued   = "token.issued"
	EventClientFailure = "client.auth_failure"
)

// Log escribe un evento de auditoría. Hereda request_id del logger del contexto.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	l := logger.From(ctx).Named("audit")
	l.Info(event, append([]zap.Field{zap.String("event", event)}, fields...)...)
}
