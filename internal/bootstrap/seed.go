// Package bootstrap crea los registros mínimos para operar: la cuenta root y el
// cliente de confianza del sitio. Es idempotente: lo existente no se toca.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/security/password"
	"github.com/dropDatabas3/widgetauth/internal/validation"
)

const (
	// RootScope incluye SiteScope: el implicit grant sólo concede scopes que la
	// cuenta tiene, y root entra por el sitio.
	RootScope = "admin site"
	SiteScope = "site"
	SiteName  = "Site"
)

// Config datos del seed. Los campos vacíos se saltean.
type Config struct {
	RootUsername string
	RootPassword string
	SiteKey      string
	SiteSecret   string
	SiteRedirect string

	// Params de argon2id; zero value => password.Default.
	Params password.Params
}

// Result indica qué se creó y qué ya existía.
type Result struct {
	RootCreated bool
	RootExists  bool
	SiteCreated bool
	SiteExists  bool
}

var ErrIncomplete = errors.New("bootstrap: incomplete seed config")

// Seed crea la cuenta root y el cliente site si faltan.
func Seed(ctx context.Context, accounts repository.AccountRepository, clients repository.ClientRepository, cfg Config) (Result, error) {
	log := logger.From(ctx).With(logger.Layer("bootstrap"), logger.Op("Seed"))
	if cfg.Params == (password.Params{}) {
		cfg.Params = password.Default
	}

	var res Result
	if cfg.RootUsername != "" {
		if cfg.RootPassword == "" {
			return res, fmt.Errorf("%w: root password required for %q", ErrIncomplete, cfg.RootUsername)
		}
		created, err := seedRoot(ctx, accounts, cfg)
		if err != nil {
			return res, err
		}
		res.RootCreated, res.RootExists = created, !created
		log.Info("root account", logger.Username(cfg.RootUsername), logger.Bool("created", created))
	}

	if cfg.SiteKey != "" {
		if cfg.SiteSecret == "" || cfg.SiteRedirect == "" {
			return res, fmt.Errorf("%w: site secret and redirect required for %q", ErrIncomplete, cfg.SiteKey)
		}
		created, err := seedSite(ctx, clients, cfg)
		if err != nil {
			return res, err
		}
		res.SiteCreated, res.SiteExists = created, !created
		log.Info("site client", logger.ClientID(cfg.SiteKey), logger.Bool("created", created))
	}
	return res, nil
}

func seedRoot(ctx context.Context, accounts repository.AccountRepository, cfg Config) (bool, error) {
	if _, err := accounts.GetByUsername(ctx, cfg.RootUsername); err == nil {
		return false, nil
	} else if !repository.IsNotFound(err) {
		return false, fmt.Errorf("bootstrap: lookup root: %w", err)
	}

	hash, err := password.Hash(cfg.Params, cfg.RootPassword)
	if err != nil {
		return false, fmt.Errorf("bootstrap: hash root password: %w", err)
	}
	_, err = accounts.Create(ctx, repository.Account{
		Username:     cfg.RootUsername,
		PasswordHash: hash,
		Scope:        RootScope,
	})
	switch {
	case err == nil:
		return true, nil
	case repository.IsConflict(err):
		// otra instancia lo creó en el medio
		return false, nil
	default:
		return false, fmt.Errorf("bootstrap: create root: %w", err)
	}
}

func seedSite(ctx context.Context, clients repository.ClientRepository, cfg Config) (bool, error) {
	if err := validation.ValidRedirectURI(cfg.SiteRedirect); err != nil {
		return false, fmt.Errorf("bootstrap: site redirect: %w", err)
	}
	if _, err := clients.GetByClientID(ctx, cfg.SiteKey); err == nil {
		return false, nil
	} else if !repository.IsNotFound(err) {
		return false, fmt.Errorf("bootstrap: lookup site client: %w", err)
	}

	hash, err := password.Hash(cfg.Params, cfg.SiteSecret)
	if err != nil {
		return false, fmt.Errorf("bootstrap: hash site secret: %w", err)
	}
	_, err = clients.Create(ctx, repository.Client{
		ClientID:    cfg.SiteKey,
		SecretHash:  hash,
		Name:        SiteName,
		RedirectURI: strings.TrimSpace(cfg.SiteRedirect),
		Scope:       SiteScope,
		Trusted:     true,
	})
	switch {
	case err == nil:
		return true, nil
	case repository.IsConflict(err):
		return false, nil
	default:
		return false, fmt.Errorf("bootstrap: create site client: %w", err)
	}
}
