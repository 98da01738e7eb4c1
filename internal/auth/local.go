package auth

import (
	"context"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/security/password"
)

// Local autentica cuentas por username/password.
type Local struct {
	accounts repository.AccountRepository
}

func NewLocal(accounts repository.AccountRepository) *Local {
	return &Local{accounts: accounts}
}

func (*Local) Name() string { return StrategyLocal }

func (l *Local) Authenticate(ctx context.Context, username, plain string) (*repository.Account, bool, error) {
	log := logger.From(ctx).With(logger.Layer("auth"), logger.Strategy(StrategyLocal))

	if username == "" || plain == "" {
		return nil, false, nil
	}
	acc, err := l.accounts.GetByUsername(ctx, username)
	if repository.IsNotFound(err) {
		password.Dummy(plain)
		log.Debug("unknown username")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !password.Verify(plain, acc.PasswordHash) {
		log.Debug("password mismatch", logger.UserID(acc.ID))
		return nil, false, nil
	}
	return acc, true, nil
}
