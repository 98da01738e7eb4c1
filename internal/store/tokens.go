package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
)

// Tokens implementa repository.TokenRepository sobre un Store.
type Tokens struct {
	s Store
}

// NewTokens crea el repositorio de access tokens.
func NewTokens(s Store) *Tokens { return &Tokens{s: s} }

var _ repository.TokenRepository = (*Tokens)(nil)

func (r *Tokens) Create(ctx context.Context, t repository.AccessToken) (*repository.AccessToken, error) {
	if t.Token == "" || t.ClientID == "" {
		return nil, fmt.Errorf("%w: token and clientId required", repository.ErrInvalidInput)
	}
	t.ID = ""
	var out repository.AccessToken
	if err := r.s.Create(ctx, repository.CollectionAccessToken, t, &out); err != nil {
		return nil, err
	}
	if out.Token != t.Token {
		// el store confirmó pero no devolvió el registro: no lo damos por persistido
		return nil, &Error{Op: "create", Collection: repository.CollectionAccessToken, Kind: KindDecode,
			Err: fmt.Errorf("stored entity does not echo token")}
	}
	return &out, nil
}

func (r *Tokens) GetByToken(ctx context.Context, token string) (*repository.AccessToken, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	var t repository.AccessToken
	found, err := r.s.Filter(ctx, repository.CollectionAccessToken, "token", token, &t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *Tokens) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.s.Delete(ctx, repository.CollectionAccessToken, map[string]any{"token": token})
	return err
}
