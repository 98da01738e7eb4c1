// Package session maneja la sesión de login del usuario final (cookie firmada
// con HMAC, estado en cache.Client) y las transacciones de autorización pendientes.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/widgetauth/internal/cache"
	tokens "github.com/dropDatabas3/widgetauth/internal/security/token"
)

// Config de la cookie de sesión.
type Config struct {
	// Secret firma el id de sesión. Vacío => secreto aleatorio por proceso
	// (las sesiones no sobreviven a un reinicio).
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Session es el estado guardado por id.
type Session struct {
	ID        string    `json:"-"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager emite, lee y destruye sesiones.
type Manager struct {
	cache  cache.Client
	cfg    Config
	secret []byte

	now func() time.Time
}

func NewManager(c cache.Client, cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "authorization.sid"
	}
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		s, err := tokens.GenerateOpaqueToken(32)
		if err != nil {
			return nil, err
		}
		secret = []byte(s)
	}
	return &Manager{cache: c, cfg: cfg, secret: secret, now: time.Now}, nil
}

func sessionKey(sid string) string { return "sess:" + sid }

func (m *Manager) sign(sid string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(sid))
	return sid + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify devuelve el sid si la firma es válida.
func (m *Manager) verify(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", false
	}
	sid := value[:i]
	if !hmac.Equal([]byte(m.sign(sid)), []byte(value)) {
		return "", false
	}
	return sid, true
}

// Login crea una sesión nueva para accountID (descartando la anterior, si había)
// y setea la cookie.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, accountID string) (Session, error) {
	if old, ok := m.sid(r); ok {
		_ = m.cache.Delete(ctx, sessionKey(old))
	}
	sid, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return Session{}, err
	}
	s := Session{ID: sid, AccountID: accountID, CreatedAt: m.now()}
	b, err := json.Marshal(s)
	if err != nil {
		return Session{}, err
	}
	if err := m.cache.Set(ctx, sessionKey(sid), string(b), m.cfg.TTL); err != nil {
		return Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    m.sign(sid),
		Path:     "/",
		MaxAge:   int(m.cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Current devuelve la sesión del request. ok=false si no hay cookie válida o la
// sesión venció; err sólo ante fallas del cache.
func (m *Manager) Current(r *http.Request) (Session, bool, error) {
	sid, ok := m.sid(r)
	if !ok {
		return Session{}, false, nil
	}
	raw, err := m.cache.Get(r.Context(), sessionKey(sid))
	if cache.IsNotFound(err) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Session{}, false, nil
	}
	s.ID = sid
	return s, true, nil
}

// Logout destruye la sesión y expira la cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	var err error
	if sid, ok := m.sid(r); ok {
		err = m.cache.Delete(r.Context(), sessionKey(sid))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}

func (m *Manager) sid(r *http.Request) (string, bool) {
	ck, err := r.Cookie(m.cfg.CookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return m.verify(ck.Value)
}
