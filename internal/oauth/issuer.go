package oauth

import (
	"context"
	"time"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/metrics"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/widgetauth/internal/security/token"
)

// TokenTypeBearer es el único token_type emitido.
const TokenTypeBearer = "Bearer"

// Grant es el resultado de una emisión.
type Grant struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	Scope       string    `json:"scope,omitempty"`
	ExpiresAt   time.Time `json:"-"`
}

// IssuerConfig parámetros de emisión.
type IssuerConfig struct {
	TTL      time.Duration  // default 3600s
	Lengths  tokens.Lengths // entropía por tipo; sólo se emiten access tokens
	Location *time.Location // zona de display de expirationDate
}

// Issuer crea y persiste access tokens.
type Issuer struct {
	tokens repository.TokenRepository
	cfg    IssuerConfig

	// Now es el reloj; reemplazable en tests.
	Now func() time.Time
}

func NewIssuer(tokensRepo repository.TokenRepository, cfg IssuerConfig) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = 3600 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Issuer{tokens: tokensRepo, cfg: cfg, Now: time.Now}
}

// Issue emite un token para client, opcionalmente en nombre de user.
// Si el store no confirma la escritura no se devuelve ningún token.
func (i *Issuer) Issue(ctx context.Context, client *repository.Client, user *repository.Account, scope string) (Grant, error) {
	grantType := "client_credentials"
	if user != nil {
		grantType = "implicit"
	}
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.issuer"), logger.ClientID(client.ClientID))

	tok, err := i.cfg.Lengths.Generate(tokens.KindAccess)
	if err != nil {
		return Grant{}, err
	}

	now := i.Now()
	exp := now.Add(i.cfg.TTL).In(i.cfg.Location)
	rec := repository.AccessToken{
		Token:          tok,
		ClientID:       client.ID,
		Scope:          scope,
		ExpirationDate: exp,
		CreatedAt:      now.In(i.cfg.Location),
	}
	if user != nil {
		uid := user.ID
		rec.UserID = &uid
	}

	if _, err := i.tokens.Create(ctx, rec); err != nil {
		log.Error("token persist failed", logger.Err(err))
		return Grant{}, err
	}

	metrics.TokensIssued.WithLabelValues(grantType).Inc()
	log.Info("token issued", logger.String("grant", grantType), logger.TokenHint(tok))
	return Grant{
		AccessToken: tok,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(i.cfg.TTL / time.Second),
		Scope:       scope,
		ExpiresAt:   exp,
	}, nil
}
