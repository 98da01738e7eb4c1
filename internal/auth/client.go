package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/security/password"
)

// clientSecret es la verificación compartida por clientBasic y clientPassword.
type clientSecret struct {
	name    string
	clients repository.ClientRepository
}

func (c *clientSecret) Name() string { return c.name }

func (c *clientSecret) Authenticate(ctx context.Context, clientID, secret string) (*repository.Client, bool, error) {
	log := logger.From(ctx).With(logger.Layer("auth"), logger.Strategy(c.name))

	if clientID == "" || secret == "" {
		return nil, false, nil
	}
	cl, err := c.clients.GetByClientID(ctx, clientID)
	if repository.IsNotFound(err) {
		password.Dummy(secret)
		log.Debug("unknown client", logger.ClientID(clientID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !password.Verify(secret, cl.SecretHash) {
		log.Debug("client secret mismatch", logger.ClientID(clientID))
		return nil, false, nil
	}
	return cl, true, nil
}

// ClientBasic lee las credenciales del header Authorization: Basic.
type ClientBasic struct{ clientSecret }

func NewClientBasic(clients repository.ClientRepository) *ClientBasic {
	return &ClientBasic{clientSecret{name: StrategyClientBasic, clients: clients}}
}

func (*ClientBasic) Credentials(r *http.Request) (string, string, bool) {
	id, secret, ok := r.BasicAuth()
	if !ok {
		return "", "", false
	}
	return id, secret, true
}

// ClientPassword lee client_id/client_secret del body del form.
type ClientPassword struct{ clientSecret }

func NewClientPassword(clients repository.ClientRepository) *ClientPassword {
	return &ClientPassword{clientSecret{name: StrategyClientPassword, clients: clients}}
}

func (*ClientPassword) Credentials(r *http.Request) (string, string, bool) {
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	id := strings.TrimSpace(r.PostForm.Get("client_id"))
	if id == "" {
		return "", "", false
	}
	return id, r.PostForm.Get("client_secret"), true
}
