// Package server conecta config, store, cache, sesiones y servicios OAuth en
// el handler HTTP del servicio.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/widgetauth/internal/auth"
	"github.com/dropDatabas3/widgetauth/internal/cache"
	"github.com/dropDatabas3/widgetauth/internal/config"
	healthctrl "github.com/dropDatabas3/widgetauth/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/widgetauth/internal/http/controllers/oauth"
	sessionctrl "github.com/dropDatabas3/widgetauth/internal/http/controllers/session"
	mw "github.com/dropDatabas3/widgetauth/internal/http/middlewares"
	"github.com/dropDatabas3/widgetauth/internal/http/router"
	"github.com/dropDatabas3/widgetauth/internal/metrics"
	"github.com/dropDatabas3/widgetauth/internal/oauth"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/rate"
	"github.com/dropDatabas3/widgetauth/internal/session"
	"github.com/dropDatabas3/widgetauth/internal/store"
	"github.com/dropDatabas3/widgetauth/internal/userinfo"

	// drivers del store
	_ "github.com/dropDatabas3/widgetauth/internal/store/memory"
	_ "github.com/dropDatabas3/widgetauth/internal/store/remote"
)

// Options permite inyectar dependencias ya construidas (tests).
type Options struct {
	Store   store.Store
	Cache   cache.Client
	Version string
	// Validator reemplaza al cliente remoto de /user/info en el bearer gate.
	Validator mw.TokenValidator
}

// App es el resultado del wiring.
type App struct {
	Handler      http.Handler
	Store        store.Store
	Cache        cache.Client
	Authorizer   *oauth.Authorizer
	Introspector *oauth.Introspector
}

// Close libera el cache (conexiones redis).
func (a *App) Close() error {
	if a.Cache != nil {
		return a.Cache.Close()
	}
	return nil
}

// OpenStore abre el store configurado e instrumentado con métricas.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:  cfg.Store.Driver,
		BaseURL: cfg.Store.BaseURL,
		Timeout: cfg.Store.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return store.Instrument(st, metrics.ObserveStore), nil
}

// BuildHandler construye todas las dependencias y devuelve el handler raíz.
func BuildHandler(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.From(ctx).With(logger.Component("wiring"))

	if err := metrics.Register(nil); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	st := opts.Store
	if st == nil {
		var err error
		if st, err = OpenStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	cc := opts.Cache
	if cc == nil {
		var err error
		cc, err = cache.New(ctx, cache.Config{
			Kind:     cfg.Cache.Kind,
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// ─── Repositorios y servicios ───
	accounts := store.NewAccounts(st)
	clients := store.NewClients(st)
	tokensRepo := store.NewTokens(st)

	strategies := auth.NewRegistry(accounts, clients)
	local, err := strategies.Password(auth.StrategyLocal)
	if err != nil {
		return nil, err
	}

	identity := oauth.NewIdentity(accounts, clients)
	issuer := oauth.NewIssuer(tokensRepo, oauth.IssuerConfig{
		TTL:      cfg.Token.TTL,
		Lengths:  cfg.TokenLengths(),
		Location: loc,
	})
	introspector := oauth.NewIntrospector(tokensRepo, accounts, clients, cfg.OAuth.WildcardScope)

	sessions, err := session.NewManager(cc, session.Config{
		Secret:     cfg.Session.Secret,
		TTL:        cfg.Session.TTL,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Session.Secret == "" {
		log.Warn("session.secret not set, using a per-process random secret")
	}
	authorizer := oauth.NewAuthorizer(clients, identity, issuer, session.NewTransactions(cc), cfg.OAuth.TransactionTTL)

	// ─── Bearer gate ───
	validator := opts.Validator
	if validator == nil {
		uc, err := userinfo.New(userinfo.Config{
			URL:         cfg.Gate.UserInfoURL,
			MaxAttempts: uint(cfg.Gate.MaxAttempts),
			RetryDelay:  cfg.Gate.RetryDelay,
			Timeout:     cfg.Gate.Timeout,
		})
		if err != nil {
			return nil, err
		}
		validator = uc
	}

	// ─── Rate limit ───
	var loginLimiter, tokenLimiter rate.Limiter
	if cfg.Rate.Enabled {
		loginLimiter, tokenLimiter = newLimiters(cfg, cc)
	}

	handler := router.New(router.Deps{
		OAuth: oauthctrl.NewControllers(oauthctrl.Deps{
			Authorizer:   authorizer,
			Clients:      strategies,
			Introspector: introspector,
		}),
		Session: sessionctrl.NewController(local, sessions),
		Health: healthctrl.NewHealthController(map[string]healthctrl.Pinger{
			"store": st,
			"cache": cc,
		}, opts.Version),
		RequireLogin: mw.RequireLogin(sessions, identity, cfg.OAuth.LoginPath),
		Bearer:       mw.RequireBearer(validator),
		LoginLimiter: loginLimiter,
		TokenLimiter: tokenLimiter,
		CORSOrigins:  cfg.Server.CORSAllowedOrigins,
		Metrics:      metrics.Handler(),
	})

	log.Info("handler built",
		logger.String("store_driver", cfg.Store.Driver),
		logger.String("cache_kind", cfg.Cache.Kind),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
		logger.Bool("wildcard_scope", cfg.OAuth.WildcardScope),
	)

	return &App{
		Handler:      handler,
		Store:        st,
		Cache:        cc,
		Authorizer:   authorizer,
		Introspector: introspector,
	}, nil
}

// newLimiters comparte contadores entre réplicas cuando el cache es redis.
func newLimiters(cfg *config.Config, cc cache.Client) (login, token rate.Limiter) {
	if rc, ok := cc.(*cache.Redis); ok {
		prefix := cfg.Cache.Redis.Prefix + ":rl:"
		return rate.NewRedisLimiter(rc.Raw(), prefix, cfg.Rate.Login.Limit, cfg.Rate.Login.Window),
			rate.NewRedisLimiter(rc.Raw(), prefix, cfg.Rate.Token.Limit, cfg.Rate.Token.Window)
	}
	return rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.Rate.Login.Window),
		rate.NewMemoryLimiter(cfg.Rate.Token.Limit, cfg.Rate.Token.Window)
}
