// Package remote implementa store.Store contra el microservicio de persistencia
// (endpoint /act con role=store y cmd=create|filter|read|update|delete).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/store"
)

const (
	actPath      = "/act"
	role         = "store"
	maxBodyBytes = 4 << 20
)

func init() {
	store.RegisterDriver(driver{})
}

type driver struct{}

func (driver) Name() string { return "remote" }

func (driver) Open(_ context.Context, cfg store.Config) (store.Store, error) {
	return New(cfg.BaseURL, cfg.Timeout)
}

// Client habla JSON sobre HTTP con el servicio de persistencia.
type Client struct {
	base string
	http *http.Client
}

// New crea el cliente. timeout acota cada request (default 10s).
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote store: invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{Timeout: timeout},
	}, nil
}

// NewWithHTTPClient permite inyectar el http.Client (tests con httptest).
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// actRequest es el sobre de los comandos enviados por body.
type actRequest struct {
	Role       string         `json:"role"`
	Cmd        string         `json:"cmd"`
	Coll       string         `json:"coll"`
	Entity     any            `json:"entity,omitempty"`
	Criteria   map[string]any `json:"criteria,omitempty"`
	Projection map[string]any `json:"projection,omitempty"`
}

func (c *Client) Create(ctx context.Context, coll string, entity any, out any) error {
	raw, found, err := c.send(ctx, http.MethodPost, "create", coll, nil, &actRequest{Entity: entity})
	if err != nil {
		return err
	}
	if !found {
		// sin eco del registro no hay confirmación de escritura
		return &store.Error{Op: "create", Collection: coll, Kind: store.KindDecode, Err: errors.New("empty response")}
	}
	return decode("create", coll, raw, out)
}

func (c *Client) Filter(ctx context.Context, coll, field, value string, out any) (bool, error) {
	q := url.Values{}
	q.Set("role", role)
	q.Set("cmd", "filter")
	q.Set("coll", coll)
	q.Set("filter", field)
	q.Set("filter_value", value)
	raw, found, err := c.send(ctx, http.MethodGet, "filter", coll, q, nil)
	if err != nil || !found {
		return false, err
	}
	return true, decode("filter", coll, raw, out)
}

func (c *Client) Read(ctx context.Context, coll string, criteria, projection map[string]any, out any) (bool, error) {
	raw, found, err := c.send(ctx, http.MethodPost, "read", coll, nil, &actRequest{Criteria: criteria, Projection: projection})
	if err != nil || !found {
		return false, err
	}
	return true, decode("read", coll, raw, out)
}

func (c *Client) Update(ctx context.Context, coll string, criteria map[string]any, entity any, out any) error {
	raw, found, err := c.send(ctx, http.MethodPost, "update", coll, nil, &actRequest{Criteria: criteria, Entity: entity})
	if err != nil {
		return err
	}
	if !found {
		return &store.Error{Op: "update", Collection: coll, Kind: store.KindRejected, Status: http.StatusNotFound,
			Err: errors.New("no entity matched criteria")}
	}
	if out == nil {
		return nil
	}
	return decode("update", coll, raw, out)
}

func (c *Client) Delete(ctx context.Context, coll string, criteria map[string]any) (store.DeleteResult, error) {
	var res store.DeleteResult
	raw, found, err := c.send(ctx, http.MethodDelete, "delete", coll, nil, &actRequest{Criteria: criteria})
	if err != nil {
		return res, err
	}
	if !found {
		// 404 / null: ya no existe, borrar es idempotente
		return res, nil
	}
	if err := decode("delete", coll, raw, &res); err != nil {
		return store.DeleteResult{}, err
	}
	return res, nil
}

// Ping verifica que el servicio responde (cualquier status < 500 cuenta como vivo).
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base+actPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &store.Error{Op: "ping", Kind: store.KindTransport, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &store.Error{Op: "ping", Kind: store.KindTransport, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	return nil
}

// send ejecuta el comando. found=false para 404, body vacío o "null".
//
// La llamada no se cancela si el request entrante se aborta: el store termina la
// operación (acotada por el timeout del http.Client) y el resultado se descarta arriba.
func (c *Client) send(ctx context.Context, method, cmd, coll string, q url.Values, body *actRequest) ([]byte, bool, error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.From(ctx).With(logger.Layer("store"), logger.Op("remote."+cmd), logger.Collection(coll))

	target := c.base + actPath
	var rdr io.Reader
	if q != nil {
		target += "?" + q.Encode()
	}
	if body != nil {
		env := *body
		env.Role, env.Cmd, env.Coll = role, cmd, coll
		b, err := json.Marshal(env)
		if err != nil {
			return nil, false, &store.Error{Op: cmd, Collection: coll, Kind: store.KindDecode, Err: err}
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, false, &store.Error{Op: cmd, Collection: coll, Kind: store.KindRejected, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("store unreachable", logger.Err(err))
		return nil, false, &store.Error{Op: cmd, Collection: coll, Kind: store.KindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, false, &store.Error{Op: cmd, Collection: coll, Kind: store.KindTransport, Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		log.Warn("store backend error", logger.Status(resp.StatusCode))
		return nil, false, &store.Error{Op: cmd, Collection: coll, Kind: store.KindTransport, Status: resp.StatusCode,
			Err: errors.New(snippet(raw, resp.Status))}
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode >= 400:
		return nil, false, &store.Error{Op: cmd, Collection: coll, Kind: store.KindRejected, Status: resp.StatusCode,
			Err: errors.New(snippet(raw, resp.Status))}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}
	log.Debug("store call ok", logger.Status(resp.StatusCode))
	return trimmed, true, nil
}

func decode(op, coll string, raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &store.Error{Op: op, Collection: coll, Kind: store.KindDecode, Err: err}
	}
	return nil
}

func snippet(raw []byte, fallback string) string {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return fallback
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
