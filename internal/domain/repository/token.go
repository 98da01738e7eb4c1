package repository

import (
	"context"
	"time"
)

// AccessToken es un bearer token opaco.
// ClientID (el _id del cliente) siempre está presente; UserID sólo si el token se
// emitió en nombre de una cuenta. El sujeto es UserID si existe, si no el cliente.
type AccessToken struct {
	ID             string    `json:"_id,omitempty"`
	Token          string    `json:"token"`
	UserID         *string   `json:"userId"`
	ClientID       string    `json:"clientId"`
	Scope          string    `json:"scope"`
	ExpirationDate time.Time `json:"expirationDate"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExpiredAt indica si el token ya no es válido en now (válido sii now < expiración).
func (t *AccessToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpirationDate)
}

// HasUser indica si el token fue emitido en nombre de una cuenta.
func (t *AccessToken) HasUser() bool {
	return t.UserID != nil && *t.UserID != ""
}

// TokenRepository define el acceso a la colección access_token.
type TokenRepository interface {
	// Create persiste el token. Sólo retorna nil si el store confirmó la escritura.
	Create(ctx context.Context, t AccessToken) (*AccessToken, error)

	// GetByToken busca por el string opaco. ErrNotFound si no existe.
	GetByToken(ctx context.Context, token string) (*AccessToken, error)

	// DeleteByToken borra el token. Es idempotente: borrar algo inexistente no es error.
	DeleteByToken(ctx context.Context, token string) error
}
