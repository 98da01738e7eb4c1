package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
)

// Accounts implementa repository.AccountRepository sobre un Store.
type Accounts struct {
	s Store
}

// NewAccounts crea el repositorio de cuentas.
func NewAccounts(s Store) *Accounts { return &Accounts{s: s} }

var _ repository.AccountRepository = (*Accounts)(nil)

func (r *Accounts) GetByUsername(ctx context.Context, username string) (*repository.Account, error) {
	return r.filter(ctx, "username", username)
}

func (r *Accounts) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	return r.filter(ctx, "_id", id)
}

func (r *Accounts) filter(ctx context.Context, field, value string) (*repository.Account, error) {
	if strings.TrimSpace(value) == "" {
		return nil, repository.ErrNotFound
	}
	var a repository.Account
	found, err := r.s.Filter(ctx, repository.CollectionAccount, field, value, &a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *Accounts) Create(ctx context.Context, a repository.Account) (*repository.Account, error) {
	if a.Username == "" || a.PasswordHash == "" {
		return nil, fmt.Errorf("%w: username and password hash required", repository.ErrInvalidInput)
	}
	if _, err := r.GetByUsername(ctx, a.Username); err == nil {
		return nil, repository.ErrConflict
	} else if !repository.IsNotFound(err) {
		return nil, err
	}
	a.ID = ""
	var out repository.Account
	if err := r.s.Create(ctx, repository.CollectionAccount, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
