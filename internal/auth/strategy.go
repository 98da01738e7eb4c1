// Package auth verifica credenciales de cuentas (resource owner) y de clientes.
//
// Cada estrategia hace una sola lectura al store y ninguna escritura. Una
// credencial incorrecta es un resultado (ok=false), no un error: los errores
// quedan reservados para fallas del store, que se propagan sin mapear.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
)

// Nombres de estrategia registrados.
const (
	StrategyLocal          = "local"
	StrategyClientBasic    = "clientBasic"
	StrategyClientPassword = "clientPassword"
)

// Strategy es el mínimo común de todas las estrategias.
type Strategy interface {
	Name() string
}

// PasswordStrategy autentica cuentas por username/password.
type PasswordStrategy interface {
	Strategy
	Authenticate(ctx context.Context, username, password string) (*repository.Account, bool, error)
}

// ClientStrategy autentica clientes por clientId/clientSecret.
type ClientStrategy interface {
	Strategy
	Authenticate(ctx context.Context, clientID, secret string) (*repository.Client, bool, error)
	// Credentials extrae las credenciales del request. found=false si este
	// mecanismo no aplica al request (p.ej. no hay header Basic).
	Credentials(r *http.Request) (clientID, secret string, found bool)
}

// Registry es la tabla nombre -> estrategia. Se construye una vez al arrancar
// y es inmutable después, por lo que es seguro para lecturas concurrentes.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry registra las tres estrategias sobre los repositorios dados.
func NewRegistry(accounts repository.AccountRepository, clients repository.ClientRepository) *Registry {
	return NewRegistryWith(
		NewLocal(accounts),
		NewClientBasic(clients),
		NewClientPassword(clients),
	)
}

// NewRegistryWith arma un registry con estrategias arbitrarias. Nombres duplicados hacen panic.
func NewRegistryWith(strategies ...Strategy) *Registry {
	m := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		if _, dup := m[s.Name()]; dup {
			panic(fmt.Sprintf("auth: strategy %q registered twice", s.Name()))
		}
		m[s.Name()] = s
	}
	return &Registry{strategies: m}
}

// Get devuelve la estrategia por nombre.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names devuelve los nombres registrados, ordenados.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Password devuelve la estrategia de cuentas registrada con name.
func (r *Registry) Password(name string) (PasswordStrategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("auth: unknown strategy %q", name)
	}
	ps, ok := s.(PasswordStrategy)
	if !ok {
		return nil, fmt.Errorf("auth: strategy %q does not authenticate accounts", name)
	}
	return ps, nil
}

// AuthenticateClient prueba las estrategias de cliente en orden. La primera
// cuyo mecanismo aplica al request decide: no se cae a la siguiente si las
// credenciales presentadas son incorrectas.
func (r *Registry) AuthenticateClient(ctx context.Context, req *http.Request, names ...string) (*repository.Client, bool, error) {
	for _, name := range names {
		s, ok := r.strategies[name]
		if !ok {
			return nil, false, fmt.Errorf("auth: unknown strategy %q", name)
		}
		cs, ok := s.(ClientStrategy)
		if !ok {
			return nil, false, fmt.Errorf("auth: strategy %q does not authenticate clients", name)
		}
		id, secret, found := cs.Credentials(req)
		if !found {
			continue
		}
		return cs.Authenticate(ctx, id, secret)
	}
	return nil, false, nil
}
