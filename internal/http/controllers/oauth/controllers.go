// Package oauth contiene los controllers de los endpoints OAuth2 (authorize,
// decision, token) y del endpoint de introspección /user/info.
package oauth

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/oauth"
)

const maxFormBodySize = 64 << 10 // 64KB

// AuthorizeService es la transacción de autorización (*oauth.Authorizer).
type AuthorizeService interface {
	Request(ctx context.Context, sessionID string, user *repository.Account, req oauth.AuthorizeRequest) (oauth.Outcome, error)
	Decide(ctx context.Context, sessionID string, user *repository.Account, req oauth.DecisionRequest) (oauth.Outcome, error)
	ClientCredentials(ctx context.Context, client *repository.Client, scope string) (oauth.Grant, error)
}

// ClientAuthenticator autentica al cliente del request (*auth.Registry).
type ClientAuthenticator interface {
	AuthenticateClient(ctx context.Context, req *http.Request, names ...string) (*repository.Client, bool, error)
}

// IntrospectService resuelve tokens opacos (*oauth.Introspector).
type IntrospectService interface {
	Introspect(ctx context.Context, token string) (oauth.Introspection, error)
}

// Deps dependencias de los controllers OAuth.
type Deps struct {
	Authorizer   AuthorizeService
	Clients      ClientAuthenticator
	Introspector IntrospectService
	// DecisionPath se informa a la UI de consentimiento.
	DecisionPath string
}

// Controllers agrupa los controllers del dominio OAuth.
type Controllers struct {
	Authorize *AuthorizeController
	Token     *TokenController
	UserInfo  *UserInfoController
}

func NewControllers(d Deps) *Controllers {
	return &Controllers{
		Authorize: NewAuthorizeController(d.Authorizer, d.DecisionPath),
		Token:     NewTokenController(d.Authorizer, d.Clients),
		UserInfo:  NewUserInfoController(d.Introspector),
	}
}
