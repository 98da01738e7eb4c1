package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/metrics"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Introspection es un token válido resuelto a su sujeto.
type Introspection struct {
	Subject   Principal
	Scope     string
	ExpiresIn int64
	ClientID  string // _id del cliente al que se emitió
}

// Introspector resuelve tokens opacos y revoca los vencidos al leerlos.
type Introspector struct {
	tokens   repository.TokenRepository
	accounts repository.AccountRepository
	clients  repository.ClientRepository

	// wildcard devuelve siempre "*" como scope (comportamiento legacy).
	wildcard bool

	// revocations coalesce borrados concurrentes del mismo token.
	revocations singleflight.Group

	Now func() time.Time
}

func NewIntrospector(t repository.TokenRepository, a repository.AccountRepository, c repository.ClientRepository, wildcardScope bool) *Introspector {
	return &Introspector{tokens: t, accounts: a, clients: c, wildcard: wildcardScope, Now: time.Now}
}

// Introspect devuelve ErrInvalidToken para tokens inexistentes, vencidos o cuyo
// sujeto ya no existe. Las fallas del store se devuelven sin mapear.
func (in *Introspector) Introspect(ctx context.Context, token string) (Introspection, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.introspect"), logger.TokenHint(token))

	rec, err := in.tokens.GetByToken(ctx, token)
	if repository.IsNotFound(err) {
		metrics.Introspections.WithLabelValues("invalid").Inc()
		return Introspection{}, ErrInvalidToken
	}
	if err != nil {
		metrics.Introspections.WithLabelValues("error").Inc()
		return Introspection{}, err
	}

	if rec.ExpiredAt(in.Now()) {
		in.revoke(ctx, log, token)
		metrics.Introspections.WithLabelValues("expired").Inc()
		return Introspection{}, ErrInvalidToken
	}

	subject, err := in.subject(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			log.Warn("token subject missing", logger.String("client_ref", rec.ClientID))
			metrics.Introspections.WithLabelValues("invalid").Inc()
		} else {
			metrics.Introspections.WithLabelValues("error").Inc()
		}
		return Introspection{}, err
	}

	// el tiempo avanzó durante la lectura del sujeto: se vuelve a chequear
	expiresIn := int64(rec.ExpirationDate.Sub(in.Now()) / time.Second)
	if expiresIn <= 0 {
		in.revoke(ctx, log, token)
		metrics.Introspections.WithLabelValues("expired").Inc()
		return Introspection{}, ErrInvalidToken
	}

	scope := rec.Scope
	if in.wildcard {
		scope = Wildcard
	}
	metrics.Introspections.WithLabelValues("valid").Inc()
	return Introspection{Subject: subject, Scope: scope, ExpiresIn: expiresIn, ClientID: rec.ClientID}, nil
}

func (in *Introspector) subject(ctx context.Context, rec *repository.AccessToken) (Principal, error) {
	if rec.HasUser() {
		acc, err := in.accounts.GetByID(ctx, *rec.UserID)
		if repository.IsNotFound(err) {
			return Principal{}, ErrInvalidToken
		}
		if err != nil {
			return Principal{}, err
		}
		return Principal{Account: acc}, nil
	}
	cl, err := in.clients.GetByID(ctx, rec.ClientID)
	if repository.IsNotFound(err) {
		return Principal{}, ErrInvalidToken
	}
	if err != nil {
		return Principal{}, err
	}
	return Principal{Client: cl}, nil
}

// revoke borra el token vencido. Es best effort: una falla se loguea y no cambia
// el resultado. Llamadas concurrentes para el mismo token comparten un solo borrado.
func (in *Introspector) revoke(ctx context.Context, log *zap.Logger, token string) {
	_, err, shared := in.revocations.Do(token, func() (any, error) {
		return nil, in.tokens.DeleteByToken(context.WithoutCancel(ctx), token)
	})
	if err != nil {
		log.Warn("expired token delete failed", logger.Err(err))
		return
	}
	log.Debug("expired token deleted", logger.Bool("shared", shared))
}
