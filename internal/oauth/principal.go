package oauth

import "github.com/dropDatabas3/widgetauth/internal/domain/repository"

// Principal es una cuenta o un cliente autenticado. Exactamente uno es no-nil.
type Principal struct {
	Account *repository.Account
	Client  *repository.Client
}

// ID devuelve el _id del principal.
func (p Principal) ID() string {
	switch {
	case p.Account != nil:
		return p.Account.ID
	case p.Client != nil:
		return p.Client.ID
	}
	return ""
}

// Kind devuelve "account" o "client".
func (p Principal) Kind() string {
	switch {
	case p.Account != nil:
		return "account"
	case p.Client != nil:
		return "client"
	}
	return ""
}

// Public devuelve la vista sin hashes, lista para serializar.
func (p Principal) Public() any {
	switch {
	case p.Account != nil:
		return p.Account.Public()
	case p.Client != nil:
		return p.Client.Public()
	}
	return nil
}
