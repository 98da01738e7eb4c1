package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
)

// Clients implementa repository.ClientRepository sobre un Store.
type Clients struct {
	s Store
}

// NewClients crea el repositorio de clientes.
func NewClients(s Store) *Clients { return &Clients{s: s} }

var _ repository.ClientRepository = (*Clients)(nil)

func (r *Clients) GetByClientID(ctx context.Context, clientID string) (*repository.Client, error) {
	return r.filter(ctx, "clientId", clientID)
}

func (r *Clients) GetByID(ctx context.Context, id string) (*repository.Client, error) {
	return r.filter(ctx, "_id", id)
}

func (r *Clients) filter(ctx context.Context, field, value string) (*repository.Client, error) {
	if strings.TrimSpace(value) == "" {
		return nil, repository.ErrNotFound
	}
	var c repository.Client
	found, err := r.s.Filter(ctx, repository.CollectionClient, field, value, &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *Clients) Create(ctx context.Context, c repository.Client) (*repository.Client, error) {
	if c.ClientID == "" || c.SecretHash == "" || c.RedirectURI == "" {
		return nil, fmt.Errorf("%w: clientId, secret hash and redirect uri required", repository.ErrInvalidInput)
	}
	if _, err := r.GetByClientID(ctx, c.ClientID); err == nil {
		return nil, repository.ErrConflict
	} else if !repository.IsNotFound(err) {
		return nil, err
	}
	c.ID = ""
	var out repository.Client
	if err := r.s.Create(ctx, repository.CollectionClient, c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
