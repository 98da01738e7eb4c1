package middlewares

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropDatabas3/widgetauth/internal/cache"
	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/rate"
	"github.com/dropDatabas3/widgetauth/internal/session"
	"github.com/dropDatabas3/widgetauth/internal/userinfo"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type fakeValidator struct {
	res   userinfo.Result
	err   error
	calls int
}

func (f *fakeValidator) Validate(_ context.Context, _ string) (userinfo.Result, error) {
	f.calls++
	return f.res, f.err
}

func code(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["code"]
}

func TestBearerToken(t *testing.T) {
	cases := map[string]bool{
		"":                  false,
		"Bearer":            false,
		"Bearer ":           false,
		"Bearer abc":        true,
		"bearer abc":        true,
		"BEARER abc":        true,
		"Basic abc":         false,
		"Bearer abc def":    false,
		"Bearer  abc":       false,
		"Bearer\tabc":       false,
		"Bearer abc ":       false,
		" Bearer abc":       false,
		"  Bearer   abc   ": false,
	}
	for header, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		tok, got := BearerToken(r)
		require.Equal(t, want, got, header)
		if want {
			require.Equal(t, "abc", tok)
		}
	}
}

func TestRequireBearerMalformedHeaderSkipsIntrospection(t *testing.T) {
	v := &fakeValidator{}
	h := RequireBearer(v)(ok)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Token abc")
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, `Bearer realm="api"`, rr.Header().Get("WWW-Authenticate"))
	require.Zero(t, v.calls)
}

func TestRequireBearerOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", userinfo.ErrInvalidToken, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"integrity", userinfo.ErrIntegrity, http.StatusInternalServerError, "BACKEND_INTEGRITY"},
		{"unavailable", fmt.Errorf("%w: status 503", userinfo.ErrUnavailable), http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := RequireBearer(&fakeValidator{err: tc.err})(ok)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			req.Header.Set("Authorization", "Bearer tok")
			h.ServeHTTP(rr, req)

			require.Equal(t, tc.status, rr.Code)
			require.Equal(t, tc.code, code(t, rr))
		})
	}
}

func TestRequireBearerInvalidTokenChallenge(t *testing.T) {
	h := RequireBearer(&fakeValidator{err: userinfo.ErrInvalidToken})(ok)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	h.ServeHTTP(rr, req)

	require.Contains(t, rr.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestRequireBearerAttachesIdentityThenScopes(t *testing.T) {
	v := &fakeValidator{res: userinfo.Result{
		Credentials: map[string]any{"_id": "acc-1", "username": "ana"},
		Scope:       "user",
	}}
	var got Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetIdentity(r.Context())
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	Chain(inner, RequireBearer(v), RequireAnyScope("admin", "user", "contributor")).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "acc-1", got.ID())
	require.Equal(t, "user", got.Scope)

	rr = httptest.NewRecorder()
	Chain(inner, RequireBearer(v), RequireScope("admin")).ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, "INSUFFICIENT_SCOPES", code(t, rr))
	require.Contains(t, rr.Header().Get("WWW-Authenticate"), `scope="admin"`)
}

func TestWildcardScopeSatisfiesAny(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{Scope: "*"}))

	rr := httptest.NewRecorder()
	Chain(ok, RequireAllScopes("admin", "billing")).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestScopesWithoutIdentity(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireAnyScope("admin")(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWithRateLimit(t *testing.T) {
	h := WithRateLimit(RateLimitConfig{
		Limiter:  rate.NewMemoryLimiter(2, time.Minute),
		KeyFunc:  IPOnlyRateKey,
		Endpoint: "login",
	})(ok)

	send := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rr, req)
		return rr
	}
	require.Equal(t, http.StatusOK, send().Code)
	require.Equal(t, http.StatusOK, send().Code)
	rr := send()
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
	require.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
}

func TestWithRateLimitNilLimiterIsSkipped(t *testing.T) {
	rr := httptest.NewRecorder()
	Chain(ok, WithRateLimit(RateLimitConfig{})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	require.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", clientIP(req))
}

func TestRequestIDPropagatedOrGenerated(t *testing.T) {
	var seen string
	h := WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	h.ServeHTTP(rr, req)
	require.Equal(t, "rid-1", seen)
	require.Equal(t, "rid-1", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.NotEqual(t, "rid-1", seen)
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		WithRequestID(), WithLogging(), WithRecover())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "INTERNAL_SERVER_ERROR", code(t, rr))
}

func TestWithCORS(t *testing.T) {
	h := WithCORS([]string{"https://app.example.com/"})(ok)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/oauth/token", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

// ─── RequireLogin ───

type fakeAccounts map[string]*repository.Account

func (f fakeAccounts) DeserializeAccount(_ context.Context, id string) (*repository.Account, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func loggedIn(t *testing.T, sm *session.Manager, accountID string) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	_, err := sm.Login(context.Background(), rr, httptest.NewRequest(http.MethodPost, "/login", nil), accountID)
	require.NoError(t, err)
	return rr.Result().Cookies()[0]
}

func TestRequireLogin(t *testing.T) {
	sm, err := session.NewManager(cache.NewMemory("t"), session.Config{Secret: "k", TTL: time.Hour})
	require.NoError(t, err)
	accounts := fakeAccounts{"acc-1": {ID: "acc-1", Username: "ana"}}

	var acc *repository.Account
	h := RequireLogin(sm, accounts, "/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc = GetAccount(r.Context())
	}))

	t.Run("anonymous GET redirects with return_to", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth/authorize?client_id=abc", nil))
		require.Equal(t, http.StatusFound, rr.Code)
		require.Equal(t, "/login?return_to=%2Foauth%2Fauthorize%3Fclient_id%3Dabc", rr.Header().Get("Location"))
	})

	t.Run("anonymous POST is 401", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/oauth/authorize/decision", nil))
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("session loads account", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil)
		req.AddCookie(loggedIn(t, sm, "acc-1"))
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, acc)
		require.Equal(t, "ana", acc.Username)
	})

	t.Run("deleted account logs out", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil)
		req.AddCookie(loggedIn(t, sm, "gone"))
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusFound, rr.Code)
	})
}
