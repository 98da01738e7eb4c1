package repository

import "context"

// Client es una aplicación registrada. Trusted saltea el consentimiento interactivo.
type Client struct {
	ID           string `json:"_id,omitempty"`
	ClientID     string `json:"clientId"` // identificador público
	SecretHash   string `json:"clientSecret"`
	Name         string `json:"name"`
	RedirectURI  string `json:"redirectUri"`
	Scope        string `json:"scope"`
	Trusted      bool   `json:"trustedClient"`
	LastModified int64  `json:"last_modified_date,omitempty"`
}

// PublicClient es la vista sin secreto.
type PublicClient struct {
	Kind        string `json:"kind"`
	ID          string `json:"_id"`
	ClientID    string `json:"clientId"`
	Name        string `json:"name"`
	RedirectURI string `json:"redirectUri"`
	Scope       string `json:"scope"`
	Trusted     bool   `json:"trustedClient"`
}

// Public devuelve la vista publicable del cliente.
func (c *Client) Public() PublicClient {
	return PublicClient{
		Kind:        "client",
		ID:          c.ID,
		ClientID:    c.ClientID,
		Name:        c.Name,
		RedirectURI: c.RedirectURI,
		Scope:       c.Scope,
		Trusted:     c.Trusted,
	}
}

// ClientRepository define el acceso a la colección client.
type ClientRepository interface {
	// GetByClientID busca por clientId público. ErrNotFound si no existe.
	GetByClientID(ctx context.Context, clientID string) (*Client, error)

	// GetByID busca por _id. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Client, error)

	// Create persiste el cliente. ErrConflict si el clientId ya existe.
	Create(ctx context.Context, c Client) (*Client, error)
}
