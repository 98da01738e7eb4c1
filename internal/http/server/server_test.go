package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dropDatabas3/widgetauth/internal/cache"
	"github.com/dropDatabas3/widgetauth/internal/config"
	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/security/password"
	"github.com/dropDatabas3/widgetauth/internal/store"
	"github.com/dropDatabas3/widgetauth/internal/store/memory"
	"github.com/dropDatabas3/widgetauth/internal/userinfo"
	"github.com/stretchr/testify/require"
)

var fast = password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

type harness struct {
	t   *testing.T
	h   http.Handler
	mem *memory.Store
	gw  *fakeGate
}

type fakeGate struct {
	res userinfo.Result
	err error
}

func (g *fakeGate) Validate(context.Context, string) (userinfo.Result, error) { return g.res, g.err }

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	ctx := context.Background()
	mem := memory.New()
	accounts, clients := store.NewAccounts(mem), store.NewClients(mem)

	pw, err := password.Hash(fast, "pw")
	require.NoError(t, err)
	_, err = accounts.Create(ctx, repository.Account{Username: "ana", PasswordHash: pw, Scope: "user site"})
	require.NoError(t, err)
	_, err = accounts.Create(ctx, repository.Account{Username: "bob", PasswordHash: pw, Scope: "user site"})
	require.NoError(t, err)

	secret, err := password.Hash(fast, "shh")
	require.NoError(t, err)
	_, err = clients.Create(ctx, repository.Client{
		ClientID: "widget", SecretHash: secret, Name: "Widget", RedirectURI: "https://widget/cb", Scope: "user contributor",
	})
	require.NoError(t, err)
	_, err = clients.Create(ctx, repository.Client{
		ClientID: "site", SecretHash: secret, Name: "Site", RedirectURI: "https://site/cb", Scope: "site", Trusted: true,
	})
	require.NoError(t, err)

	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	gw := &fakeGate{}
	app, err := BuildHandler(ctx, cfg, Options{Store: mem, Cache: cache.NewMemory("test"), Validator: gw})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return &harness{t: t, h: app.Handler, mem: mem, gw: gw}
}

func (h *harness) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.h.ServeHTTP(rr, req)
	return rr
}

func (h *harness) login(username string) *http.Cookie {
	h.t.Helper()
	form := url.Values{"username": {username}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := h.do(req, nil)
	require.Equal(h.t, http.StatusOK, rr.Code, rr.Body.String())
	cookies := rr.Result().Cookies()
	require.NotEmpty(h.t, cookies)
	return cookies[0]
}

func (h *harness) authorize(cookie *http.Cookie, clientID, redirect, state string) *httptest.ResponseRecorder {
	q := url.Values{"response_type": {"token"}, "client_id": {clientID}, "redirect_uri": {redirect}}
	if state != "" {
		q.Set("state", state)
	}
	return h.do(httptest.NewRequest(http.MethodGet, "/oauth/authorize?"+q.Encode(), nil), cookie)
}

func (h *harness) decide(cookie *http.Cookie, txID string, allow bool) *httptest.ResponseRecorder {
	form := url.Values{"transaction_id": {txID}}
	if !allow {
		form.Set("cancel", "Deny")
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth/authorize/decision", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req, cookie)
}

func (h *harness) tokenCount() int { return h.mem.Len(repository.CollectionAccessToken) }

func fragment(t *testing.T, rr *httptest.ResponseRecorder) (string, url.Values) {
	t.Helper()
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	u, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	v, err := url.ParseQuery(u.EscapedFragment())
	require.NoError(t, err)
	u.Fragment, u.RawFragment = "", ""
	return u.String(), v
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// ─── authorize ───

func TestAuthorizeRequiresLogin(t *testing.T) {
	h := newHarness(t)
	rr := h.authorize(nil, "site", "https://site/cb", "")
	require.Equal(t, http.StatusFound, rr.Code)
	require.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/login?return_to="))
}

func TestTrustedClientRedirectsWithToken(t *testing.T) {
	h := newHarness(t)
	ck := h.login("ana")

	base, v := fragment(t, h.authorize(ck, "site", "https://site/cb", "xyz"))
	require.Equal(t, "https://site/cb", base)
	require.NotEmpty(t, v.Get("access_token"))
	require.Equal(t, "Bearer", v.Get("token_type"))
	require.Equal(t, "3600", v.Get("expires_in"))
	require.Equal(t, "xyz", v.Get("state"))
	require.Equal(t, 1, h.tokenCount())

	// el token introspecta a la cuenta logueada
	rr := h.do(httptest.NewRequest(http.MethodGet, "/user/info?access_token="+url.QueryEscape(v.Get("access_token")), nil), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	body := decodeJSON(t, rr)
	require.Equal(t, true, body["isValid"])
	require.Equal(t, "site", body["scope"])
	aud := body["audience"].(map[string]any)
	require.Equal(t, "ana", aud["username"])
	require.NotContains(t, aud, "password")
}

func TestAuthorizeRejectsScopeBeyondAccount(t *testing.T) {
	h := newHarness(t)
	ck := h.login("ana")

	for _, scope := range []string{"admin", "*", "site admin", "contributor"} {
		q := url.Values{"response_type": {"token"}, "client_id": {"site"}, "redirect_uri": {"https://site/cb"}, "scope": {scope}}
		rr := h.do(httptest.NewRequest(http.MethodGet, "/oauth/authorize?"+q.Encode(), nil), ck)
		require.Equal(t, http.StatusBadRequest, rr.Code, scope)
		require.Empty(t, rr.Header().Get("Location"))
		require.Equal(t, "invalid_scope", decodeJSON(t, rr)["error"])
	}

	// widget permite contributor pero la cuenta no lo tiene
	q := url.Values{"response_type": {"token"}, "client_id": {"widget"}, "redirect_uri": {"https://widget/cb"}, "scope": {"contributor"}}
	rr := h.do(httptest.NewRequest(http.MethodGet, "/oauth/authorize?"+q.Encode(), nil), ck)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Zero(t, h.tokenCount())

	// el pedido dentro de ambos límites sigue funcionando
	q.Set("scope", "user")
	rr = h.do(httptest.NewRequest(http.MethodGet, "/oauth/authorize?"+q.Encode(), nil), ck)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user", decodeJSON(t, rr)["scope"])
}

func TestAuthorizeRedirectMismatchNeverRedirects(t *testing.T) {
	h := newHarness(t)
	ck := h.login("ana")

	rr := h.authorize(ck, "site", "https://evil/cb", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, rr.Header().Get("Location"))
	require.Equal(t, "invalid_request", decodeJSON(t, rr)["error"])
	require.Zero(t, h.tokenCount())

	rr = h.authorize(ck, "nope", "https://site/cb", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_client", decodeJSON(t, rr)["error"])
}

func TestConsentAllowThenReplay(t *testing.T) {
	h := newHarness(t)
	ck := h.login("ana")

	rr := h.authorize(ck, "widget", "https://widget/cb", "s1")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeJSON(t, rr)
	require.Equal(t, "awaiting_user", body["status"])
	require.Equal(t, "Widget", body["client"].(map[string]any)["name"])
	txID := body["transaction_id"].(string)
	require.Zero(t, h.tokenCount())

	base, v := fragment(t, h.decide(ck, txID, true))
	require.Equal(t, "https://widget/cb", base)
	require.NotEmpty(t, v.Get("access_token"))
	require.Equal(t, "s1", v.Get("state"))
	require.Equal(t, 1, h.tokenCount())

	// destruida al decidir
	rr = h.decide(ck, txID, true)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, 1, h.tokenCount())
}

func TestConsentDenyIssuesNothing(t *testing.T) {
	h := newHarness(t)
	ck := h.login("ana")

	txID := decodeJSON(t, h.authorize(ck, "widget", "https://widget/cb", "s2"))["transaction_id"].(string)
	_, v := fragment(t, h.decide(ck, txID, false))
	require.Equal(t, "access_denied", v.Get("error"))
	require.Equal(t, "s2", v.Get("state"))
	require.Empty(t, v.Get("access_token"))
	require.Zero(t, h.tokenCount())
}

func TestDecisionFromOtherSession(t *testing.T) {
	h := newHarness(t)
	ana := h.login("ana")
	bob := h.login("bob")

	txID := decodeJSON(t, h.authorize(ana, "widget", "https://widget/cb", ""))["transaction_id"].(string)
	rr := h.decide(bob, txID, true)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Zero(t, h.tokenCount())

	// sigue pendiente para la sesión dueña
	_, v := fragment(t, h.decide(ana, txID, true))
	require.NotEmpty(t, v.Get("access_token"))
}

// ─── token endpoint ───

func tokenRequest(form url.Values, basicUser, basicPass string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	return req
}

func TestTokenClientCredentials(t *testing.T) {
	h := newHarness(t)

	rr := h.do(tokenRequest(url.Values{"grant_type": {"client_credentials"}}, "widget", "shh"), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	body := decodeJSON(t, rr)
	require.Equal(t, "Bearer", body["token_type"])
	require.Equal(t, "user contributor", body["scope"])
	require.EqualValues(t, 3600, body["expires_in"])

	// credenciales en el body
	form := url.Values{"grant_type": {"client_credentials"}, "client_id": {"widget"}, "client_secret": {"shh"}, "scope": {"user"}}
	rr = h.do(tokenRequest(form, "", ""), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user", decodeJSON(t, rr)["scope"])

	// el token de cliente introspecta al cliente
	tok := decodeJSON(t, rr)["access_token"].(string)
	req := httptest.NewRequest(http.MethodGet, "/user/info", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = h.do(req, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "client", decodeJSON(t, rr)["audience"].(map[string]any)["kind"])
}

func TestTokenErrors(t *testing.T) {
	h := newHarness(t)

	rr := h.do(tokenRequest(url.Values{"grant_type": {"client_credentials"}}, "widget", "wrong"), nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid_client", decodeJSON(t, rr)["error"])
	require.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")

	rr = h.do(tokenRequest(url.Values{"grant_type": {"client_credentials"}}, "", ""), nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = h.do(tokenRequest(url.Values{"grant_type": {"password"}}, "widget", "shh"), nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "unsupported_grant_type", decodeJSON(t, rr)["error"])

	rr = h.do(tokenRequest(url.Values{"grant_type": {"client_credentials"}, "scope": {"admin"}}, "widget", "shh"), nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_scope", decodeJSON(t, rr)["error"])

	require.Zero(t, h.tokenCount())
}

func TestTokenRateLimited(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.Token.Limit = 1
	})
	require.Equal(t, http.StatusOK, h.do(tokenRequest(url.Values{"grant_type": {"client_credentials"}}, "widget", "shh"), nil).Code)
	rr := h.do(tokenRequest(url.Values{"grant_type": {"client_credentials"}}, "widget", "shh"), nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}

// ─── /user/info ───

func TestUserInfoErrors(t *testing.T) {
	h := newHarness(t)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/user/info", nil), nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_token", decodeJSON(t, rr)["error"])

	rr = h.do(httptest.NewRequest(http.MethodGet, "/user/info?access_token=unknown", nil), nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	h.mem.Fail = func(op, coll string) error {
		if coll == repository.CollectionAccessToken {
			return errors.New("connection refused")
		}
		return nil
	}
	rr = h.do(httptest.NewRequest(http.MethodGet, "/user/info?access_token=whatever", nil), nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "server_error", decodeJSON(t, rr)["error"])
}

// ─── login ───

func TestLogin(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"ana","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := h.do(req, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, rr.Result().Cookies())

	req = httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"username":"ana","password":"pw","return_to":"/oauth/authorize?client_id=site"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = h.do(req, nil)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/oauth/authorize?client_id=site", rr.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"username":"ana","password":"pw","return_to":"//evil.example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = h.do(req, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	h := newHarness(t)
	ck := h.login("ana")

	rr := h.do(httptest.NewRequest(http.MethodGet, "/logout", nil), ck)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.authorize(ck, "site", "https://site/cb", "")
	require.Equal(t, http.StatusFound, rr.Code)
	require.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/login"))
}

// ─── bearer gate ───

func TestAPIMeBehindGate(t *testing.T) {
	h := newHarness(t)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/api/me", nil), nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	h.gw.res = userinfo.Result{Credentials: map[string]any{"_id": "a1", "username": "ana"}, Scope: "contributor"}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr = h.do(req, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "contributor", decodeJSON(t, rr)["scope"])

	h.gw.res.Scope = "site"
	rr = h.do(req, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	h.gw.err = userinfo.ErrIntegrity
	rr = h.do(req, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

// ─── health ───

func TestHealth(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), nil).Code)
	require.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), nil).Code)

	h.mem.Fail = func(op, _ string) error {
		if op == "ping" {
			return errors.New("down")
		}
		return nil
	}
	rr := h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "error", decodeJSON(t, rr)["components"].(map[string]any)["store"].(map[string]any)["status"])
}

func TestNotFoundIsJSON(t *testing.T) {
	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/nope", nil), nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "NOT_FOUND", decodeJSON(t, rr)["code"])
}
