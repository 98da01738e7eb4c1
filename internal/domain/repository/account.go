package repository

import "context"

// Account es el resource owner. PasswordHash es argon2id (PHC) o bcrypt.
type Account struct {
	ID           string `json:"_id,omitempty"`
	Username     string `json:"username"`
	PasswordHash string `json:"password"`
	Scope        string `json:"scope"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LastModified int64  `json:"last_modified_date,omitempty"` // epoch ms, lo pone el store
}

// PublicAccount es la vista sin hash que viaja como "audience".
type PublicAccount struct {
	Kind         string `json:"kind"`
	ID           string `json:"_id"`
	Username     string `json:"username"`
	Scope        string `json:"scope"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LastModified int64  `json:"last_modified_date,omitempty"`
}

// Public devuelve la vista publicable de la cuenta.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		Kind:         "account",
		ID:           a.ID,
		Username:     a.Username,
		Scope:        a.Scope,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		LastModified: a.LastModified,
	}
}

// AccountRepository define el acceso a la colección account.
type AccountRepository interface {
	// GetByUsername busca por la clave natural. ErrNotFound si no existe.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByID busca por _id. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Account, error)

	// Create persiste la cuenta y devuelve el registro con _id.
	// ErrConflict si el username ya existe.
	Create(ctx context.Context, a Account) (*Account, error)
}
