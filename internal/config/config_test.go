package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

// clearEnv aísla el test de overrides presentes en el entorno.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WIDGETAUTH_ENV", "APP_ENV", "WIDGETAUTH_ADDR", "WIDGETAUTH_STORE_DRIVER",
		"WIDGETAUTH_TOKEN_TTL", "WIDGETAUTH_TIMEZONE", "TZ", "WIDGETAUTH_SESSION_SECRET",
		"SESSION_SECRET", "WIDGETAUTH_CACHE_KIND", "WIDGETAUTH_REDIS_ADDR", "REDIS_ADDR",
		"WIDGETAUTH_USERINFO_URL", "WIDGETAUTH_WILDCARD_SCOPE", "SITE_KEY",
		"WIDGETAUTH_ACCESS_TOKEN_BYTES", "WIDGETAUTH_AUTHORIZATION_CODE_BYTES", "WIDGETAUTH_REFRESH_TOKEN_BYTES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, ":10008", c.Server.Addr)
	require.Equal(t, "remote", c.Store.Driver)
	require.Equal(t, time.Hour, c.Token.TTL)
	require.Equal(t, 32, c.Token.AccessTokenBytes)
	require.Equal(t, 16, c.Token.AuthorizationCodeBytes)
	require.Equal(t, 32, c.Token.RefreshTokenBytes)
	require.NoError(t, c.TokenLengths().Validate())
	require.Equal(t, 10*time.Minute, c.OAuth.TransactionTTL)
	require.Equal(t, "authorization.sid", c.Session.CookieName)
	require.Equal(t, 3, c.Gate.MaxAttempts)
	require.Equal(t, 3*time.Second, c.Gate.RetryDelay)
	require.Equal(t, "http://localhost:10008/user/info", c.Gate.UserInfoURL)
	require.False(t, c.OAuth.WildcardScope)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	p := writeYAML(t, `
app:
  app_env: dev
server:
  addr: "127.0.0.1:9000"
store:
  driver: memory
token:
  ttl: 90s
  timezone: UTC
oauth:
  wildcard_scope: true
cache:
  kind: redis
  redis:
    addr: "redis:6379"
`)
	clearEnv(t)
	t.Setenv("WIDGETAUTH_TOKEN_TTL", "120")
	t.Setenv("SITE_KEY", "site")

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", c.Server.Addr)
	require.Equal(t, "http://127.0.0.1:9000/user/info", c.Gate.UserInfoURL)
	require.Equal(t, "memory", c.Store.Driver)
	require.Equal(t, 120*time.Second, c.Token.TTL)
	require.True(t, c.OAuth.WildcardScope)
	require.Equal(t, "redis", c.Cache.Kind)
	require.Equal(t, "site", c.Bootstrap.SiteKey)

	loc, err := c.Location()
	require.NoError(t, err)
	require.Equal(t, "UTC", loc.String())
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "server: [",
		"unknown driver": "store:\n  driver: postgres\n",
		"unknown cache":  "cache:\n  kind: memcached\n",
		"redis no addr":  "cache:\n  kind: redis\n",
		"short tokens":   "token:\n  access_token_bytes: 8\n",
		"short codes":    "token:\n  authorization_code_bytes: 8\n",
		"short refresh":  "token:\n  refresh_token_bytes: 4\n",
		"bad timezone":   "token:\n  timezone: Mars/Olympus\n",
		"prod no secret": "app:\n  app_env: prod\n",
		"negative ttl":   "token:\n  ttl: -1s\n",
		"zero max tries": "gate:\n  max_attempts: -1\n",
	}
	clearEnv(t)
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			require.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("3600")
	require.NoError(t, err)
	require.Equal(t, time.Hour, d)

	d, err = parseDuration("1m30s")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = parseDuration("soon")
	require.Error(t, err)
}
