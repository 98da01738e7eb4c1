// Package userinfo es el cliente remoto del endpoint de introspección
// (GET /user/info) que usan los resource servers para validar bearer tokens.
package userinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dropDatabas3/widgetauth/internal/metrics"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
)

var (
	// ErrInvalidToken: el backend respondió definitivamente que el token no vale.
	ErrInvalidToken = errors.New("userinfo: invalid token")
	// ErrIntegrity: respuesta válida en forma HTTP pero con payload roto (audience
	// ausente o no objeto). Indica un bug del backend, no un caller no autorizado.
	ErrIntegrity = errors.New("userinfo: malformed introspection payload")
	// ErrUnavailable: se agotaron los reintentos por fallas de red o 5xx.
	ErrUnavailable = errors.New("userinfo: introspection backend unavailable")
)

// Result es la identidad resuelta por el backend.
type Result struct {
	Credentials map[string]any
	Scope       string
	ExpiresIn   int64
}

// Config del cliente.
type Config struct {
	URL         string
	MaxAttempts uint          // default 3
	RetryDelay  time.Duration // fijo entre intentos, default 3s
	Timeout     time.Duration // por intento, default 5s
}

type Client struct {
	url  string
	http *http.Client
	cfg  Config
}

func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("userinfo: invalid url %q", cfg.URL)
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 3 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{url: u.String(), http: &http.Client{Timeout: cfg.Timeout}, cfg: cfg}, nil
}

// response es el cuerpo de /user/info.
type response struct {
	Audience  json.RawMessage `json:"audience"`
	Scope     string          `json:"scope"`
	ExpiresIn int64           `json:"expires_in"`
	IsValid   bool            `json:"isValid"`
	Error     string          `json:"error"`
}

// Validate resuelve token contra el backend. Reintenta sólo ante errores de red
// o 5xx; una respuesta 4xx es definitiva. Cancelar ctx corta la espera entre intentos.
func (c *Client) Validate(ctx context.Context, token string) (Result, error) {
	log := logger.From(ctx).With(logger.Component("userinfo"), logger.TokenHint(token))
	attempt := 0

	op := func() (Result, error) {
		attempt++
		res, err := c.once(ctx, token)
		if err != nil && !isRetryable(err) {
			return Result{}, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, d time.Duration) {
		metrics.GateRetries.Inc()
		log.Warn("introspection attempt failed, retrying", logger.Attempt(attempt), logger.Delay(d), logger.Err(err))
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.cfg.RetryDelay)),
		backoff.WithMaxTries(c.cfg.MaxAttempts),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrIntegrity) {
		return Result{}, err
	}
	log.Error("introspection backend unavailable", logger.Attempt(attempt), logger.Err(err))
	return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// transientError marca una falla reintentable.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func (c *Client) once(ctx context.Context, token string) (Result, error) {
	q := url.Values{"access_token": {token}}
	target := c.url
	if strings.Contains(target, "?") {
		target += "&" + q.Encode()
	} else {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, &transientError{err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, &transientError{err}
	}

	switch {
	case resp.StatusCode >= 500:
		return Result{}, &transientError{fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return Result{}, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return Result{}, fmt.Errorf("%w: unexpected status %d", ErrIntegrity, resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	if !r.IsValid {
		return Result{}, ErrInvalidToken
	}
	var creds map[string]any
	if len(r.Audience) == 0 || json.Unmarshal(r.Audience, &creds) != nil || creds == nil {
		return Result{}, ErrIntegrity
	}
	return Result{Credentials: creds, Scope: r.Scope, ExpiresIn: r.ExpiresIn}, nil
}
