package oauth

import (
	"context"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
)

// Identity mapea principals a un id compacto para la sesión y de vuelta.
// Deserializar siempre relee el store: nada se cachea.
type Identity struct {
	accounts repository.AccountRepository
	clients  repository.ClientRepository
}

func NewIdentity(accounts repository.AccountRepository, clients repository.ClientRepository) *Identity {
	return &Identity{accounts: accounts, clients: clients}
}

func (*Identity) SerializeAccount(a *repository.Account) string { return a.ID }

func (*Identity) SerializeClient(c *repository.Client) string { return c.ID }

// DeserializeAccount devuelve repository.ErrNotFound si la cuenta ya no existe.
func (i *Identity) DeserializeAccount(ctx context.Context, id string) (*repository.Account, error) {
	return i.accounts.GetByID(ctx, id)
}

// DeserializeClient devuelve repository.ErrNotFound si el cliente ya no existe.
func (i *Identity) DeserializeClient(ctx context.Context, id string) (*repository.Client, error) {
	return i.clients.GetByID(ctx, id)
}
