package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tokens "github.com/dropDatabas3/widgetauth/internal/security/token"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string        `yaml:"addr"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Store struct {
		Driver  string        `yaml:"driver"`   // remote | memory
		BaseURL string        `yaml:"base_url"` // servicio de persistencia remoto
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"store"`

	Token struct {
		TTL                    time.Duration `yaml:"ttl"`
		AccessTokenBytes       int           `yaml:"access_token_bytes"`
		AuthorizationCodeBytes int           `yaml:"authorization_code_bytes"`
		RefreshTokenBytes      int           `yaml:"refresh_token_bytes"`
		// Zona horaria usada para formatear expirationDate (display). Vacío => TZ del proceso.
		Timezone string `yaml:"timezone"`
	} `yaml:"token"`

	OAuth struct {
		TransactionTTL time.Duration `yaml:"transaction_ttl"`
		// WildcardScope restaura el comportamiento legacy: introspección siempre devuelve "*".
		WildcardScope bool   `yaml:"wildcard_scope"`
		LoginPath     string `yaml:"login_path"`
	} `yaml:"oauth"`

	Session struct {
		Secret     string        `yaml:"secret"`
		TTL        time.Duration `yaml:"ttl"`
		CookieName string        `yaml:"cookie_name"`
		Secure     bool          `yaml:"secure"`
	} `yaml:"session"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Gate struct {
		UserInfoURL string        `yaml:"userinfo_url"`
		MaxAttempts int           `yaml:"max_attempts"`
		RetryDelay  time.Duration `yaml:"retry_delay"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"gate"`

	Rate struct {
		Enabled bool  `yaml:"enabled"`
		Login   Limit `yaml:"login"`
		Token   Limit `yaml:"token"`
	} `yaml:"rate"`

	Bootstrap struct {
		RootUsername string `yaml:"root_username"`
		RootPassword string `yaml:"root_password"`
		SiteKey      string `yaml:"site_key"`
		SiteSecret   string `yaml:"site_secret"`
		SiteRedirect string `yaml:"site_redirect"`
	} `yaml:"bootstrap"`
}

// Limit es una ventana fija de rate limit por endpoint.
type Limit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Load lee el YAML (si path no está vacío), aplica defaults y overrides de entorno.
// Un path inexistente no es error: se arranca solo con env + defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default devuelve una configuración sólo con defaults (tests, `serve --store=memory`).
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":10008"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "remote"
	}
	if c.Store.BaseURL == "" {
		c.Store.BaseURL = "http://store:44001"
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = 10 * time.Second
	}
	if c.Token.TTL == 0 {
		c.Token.TTL = 3600 * time.Second
	}
	if c.Token.AccessTokenBytes == 0 {
		c.Token.AccessTokenBytes = tokens.DefaultLengths.Access
	}
	if c.Token.AuthorizationCodeBytes == 0 {
		c.Token.AuthorizationCodeBytes = tokens.DefaultLengths.AuthorizationCode
	}
	if c.Token.RefreshTokenBytes == 0 {
		c.Token.RefreshTokenBytes = tokens.DefaultLengths.Refresh
	}
	if c.OAuth.TransactionTTL == 0 {
		c.OAuth.TransactionTTL = 10 * time.Minute
	}
	if c.OAuth.LoginPath == "" {
		c.OAuth.LoginPath = "/login"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "authorization.sid"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "widgetauth"
	}
	if c.Gate.UserInfoURL == "" {
		c.Gate.UserInfoURL = "http://localhost" + c.Server.Addr + "/user/info"
		if !strings.HasPrefix(c.Server.Addr, ":") {
			c.Gate.UserInfoURL = "http://" + c.Server.Addr + "/user/info"
		}
	}
	if c.Gate.MaxAttempts == 0 {
		c.Gate.MaxAttempts = 3
	}
	if c.Gate.RetryDelay == 0 {
		c.Gate.RetryDelay = 3 * time.Second
	}
	if c.Gate.Timeout == 0 {
		c.Gate.Timeout = 5 * time.Second
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == 0 {
		c.Rate.Login.Window = time.Minute
	}
	if c.Rate.Token.Limit == 0 {
		c.Rate.Token.Limit = 30
	}
	if c.Rate.Token.Window == 0 {
		c.Rate.Token.Window = time.Minute
	}
}

// applyEnv aplica overrides desde variables de entorno.
// Los nombres legacy (TZ, ROOT_USERNAME, SITE_KEY, ...) se respetan para el bootstrap.
func (c *Config) applyEnv() {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if d, err := parseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	num := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	boolean := func(dst *bool, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str(&c.App.Env, "WIDGETAUTH_ENV", "APP_ENV")
	str(&c.Server.Addr, "WIDGETAUTH_ADDR")
	str(&c.Log.Level, "WIDGETAUTH_LOG_LEVEL", "LOG_LEVEL")
	str(&c.Store.Driver, "WIDGETAUTH_STORE_DRIVER")
	str(&c.Store.BaseURL, "WIDGETAUTH_STORE_URL", "STORE_URL")
	dur(&c.Token.TTL, "WIDGETAUTH_TOKEN_TTL")
	num(&c.Token.AccessTokenBytes, "WIDGETAUTH_ACCESS_TOKEN_BYTES")
	num(&c.Token.AuthorizationCodeBytes, "WIDGETAUTH_AUTHORIZATION_CODE_BYTES")
	num(&c.Token.RefreshTokenBytes, "WIDGETAUTH_REFRESH_TOKEN_BYTES")
	str(&c.Token.Timezone, "WIDGETAUTH_TIMEZONE", "TZ")
	boolean(&c.OAuth.WildcardScope, "WIDGETAUTH_WILDCARD_SCOPE")
	str(&c.Session.Secret, "WIDGETAUTH_SESSION_SECRET", "SESSION_SECRET")
	dur(&c.Session.TTL, "WIDGETAUTH_SESSION_TTL")
	str(&c.Cache.Kind, "WIDGETAUTH_CACHE_KIND")
	str(&c.Cache.Redis.Addr, "WIDGETAUTH_REDIS_ADDR", "REDIS_ADDR")
	str(&c.Gate.UserInfoURL, "WIDGETAUTH_USERINFO_URL")
	dur(&c.Gate.RetryDelay, "WIDGETAUTH_GATE_RETRY_DELAY")
	boolean(&c.Rate.Enabled, "WIDGETAUTH_RATE_ENABLED")
	str(&c.Bootstrap.RootUsername, "ROOT_USERNAME")
	str(&c.Bootstrap.RootPassword, "ROOT_PASSWORD")
	str(&c.Bootstrap.SiteKey, "SITE_KEY")
	str(&c.Bootstrap.SiteSecret, "SITE_SECRET")
	str(&c.Bootstrap.SiteRedirect, "SITE_REDIRECT")
}

// parseDuration acepta "90s"/"1h" o un entero en segundos ("3600").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate chequea invariantes mínimas de la configuración.
func (c *Config) Validate() error {
	if c.Token.TTL <= 0 {
		return errors.New("config: token.ttl must be positive")
	}
	if err := c.TokenLengths().Validate(); err != nil {
		return fmt.Errorf("config: token lengths: %w", err)
	}
	if c.Session.TTL <= 0 || c.OAuth.TransactionTTL <= 0 {
		return errors.New("config: session.ttl and oauth.transaction_ttl must be positive")
	}
	switch c.Store.Driver {
	case "remote", "memory":
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache.kind %q", c.Cache.Kind)
	}
	if c.Cache.Kind == "redis" && c.Cache.Redis.Addr == "" {
		return errors.New("config: cache.redis.addr required for redis cache")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: token.timezone: %w", err)
	}
	if c.Gate.MaxAttempts < 1 {
		return errors.New("config: gate.max_attempts must be >= 1")
	}
	if c.Session.Secret == "" && !c.IsDev() {
		return errors.New("config: session.secret required outside dev")
	}
	return nil
}

// TokenLengths devuelve los largos de credencial configurados.
func (c *Config) TokenLengths() tokens.Lengths {
	return tokens.Lengths{
		Access:            c.Token.AccessTokenBytes,
		AuthorizationCode: c.Token.AuthorizationCodeBytes,
		Refresh:           c.Token.RefreshTokenBytes,
	}
}

// IsDev indica si estamos en entorno de desarrollo.
func (c *Config) IsDev() bool {
	return c.App.Env == "" || strings.EqualFold(c.App.Env, "dev")
}

// Location resuelve la zona horaria de display para expirationDate.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Token.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Token.Timezone)
}
