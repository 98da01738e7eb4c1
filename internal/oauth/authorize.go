package oauth

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/widgetauth/internal/domain/repository"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/google/uuid"
)

// State es el estado de una transacción de autorización.
type State int

const (
	StateRequested State = iota + 1
	StateAwaitingUser
	StateTrustedAutoDecided
	StateUserDecided
	StateGrantIssued
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "REQUESTED"
	case StateAwaitingUser:
		return "AWAITING_USER"
	case StateTrustedAutoDecided:
		return "TRUSTED_AUTO_DECIDED"
	case StateUserDecided:
		return "USER_DECIDED"
	case StateGrantIssued:
		return "GRANT_ISSUED"
	case StateDenied:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

// Terminal indica si el estado cierra la transacción.
func (s State) Terminal() bool { return s == StateGrantIssued || s == StateDenied }

// Transaction es una autorización pendiente de consentimiento. Vive en la capa
// de sesión hasta que se decide o vence.
type Transaction struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"` // _id del cliente
	RedirectURI string    `json:"redirect_uri"`
	Scope       string    `json:"scope"`
	State       string    `json:"state,omitempty"` // parámetro state del cliente
	UserID      string    `json:"user_id"`
	Status      State     `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionStore guarda transacciones por sesión.
type TransactionStore interface {
	Save(ctx context.Context, sessionID string, tx Transaction, ttl time.Duration) error
	// Load devuelve ErrTransactionNotFound si no existe (o venció).
	Load(ctx context.Context, sessionID, id string) (*Transaction, error)
	// Take obtiene y borra atómicamente. ErrTransactionNotFound si otro request
	// ya la consumió.
	Take(ctx context.Context, sessionID, id string) (*Transaction, error)
}

// AuthorizeRequest son los parámetros de GET /oauth/authorize.
type AuthorizeRequest struct {
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
	ResponseType string
}

// DecisionRequest es el POST de consentimiento.
type DecisionRequest struct {
	TransactionID string
	Allow         bool
}

// Outcome describe dónde terminó un paso de la transacción.
//   - StateAwaitingUser: Transaction y Client describen lo que hay que mostrar.
//   - StateGrantIssued: Grant y RedirectURL (fragmento con el token).
//   - StateDenied: RedirectURL con error=access_denied.
type Outcome struct {
	State       State
	Decision    State // StateTrustedAutoDecided | StateUserDecided
	Transaction *Transaction
	Client      *repository.Client
	Grant       *Grant
	RedirectURL string
}

// Authorizer coordina validación de cliente, consentimiento y emisión.
type Authorizer struct {
	clients  repository.ClientRepository
	identity *Identity
	issuer   *Issuer
	txs      TransactionStore
	txTTL    time.Duration

	Now func() time.Time
}

func NewAuthorizer(clients repository.ClientRepository, identity *Identity, issuer *Issuer, txs TransactionStore, txTTL time.Duration) *Authorizer {
	if txTTL <= 0 {
		txTTL = 10 * time.Minute
	}
	return &Authorizer{clients: clients, identity: identity, issuer: issuer, txs: txs, txTTL: txTTL, Now: time.Now}
}

// Request valida el pedido de autorización. Cualquier error de validación deja
// la transacción cerrada sin redirect: el caller no debe redirigir a un URI no verificado.
func (a *Authorizer) Request(ctx context.Context, sessionID string, user *repository.Account, req AuthorizeRequest) (Outcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.authorize"), logger.ClientID(req.ClientID))

	if req.ResponseType != "" && req.ResponseType != "token" {
		return Outcome{}, ErrUnsupportedResponseType
	}
	if user == nil || sessionID == "" {
		return Outcome{}, ErrLoginRequired
	}
	if req.ClientID == "" || req.RedirectURI == "" {
		return Outcome{}, ErrInvalidRequest
	}
	if _, err := ParseScope(req.Scope); err != nil {
		return Outcome{}, err
	}

	client, err := a.clients.GetByClientID(ctx, req.ClientID)
	if repository.IsNotFound(err) {
		log.Warn("authorize: unknown client")
		return Outcome{}, ErrInvalidClient
	}
	if err != nil {
		return Outcome{}, err
	}
	if client.RedirectURI != req.RedirectURI {
		log.Warn("authorize: redirect_uri mismatch", logger.String("presented", req.RedirectURI))
		return Outcome{}, ErrInvalidRedirect
	}

	scope, err := grantableScope(req.Scope, client, user)
	if err != nil {
		log.Warn("authorize: scope not grantable",
			logger.String("requested", req.Scope), logger.UserID(user.ID))
		return Outcome{}, err
	}

	if client.Trusted {
		out, err := a.grant(ctx, client, user, client.RedirectURI, scope, req.State)
		if err != nil {
			return Outcome{}, err
		}
		out.Decision = StateTrustedAutoDecided
		log.Info("authorize: trusted client, consent skipped", logger.UserID(user.ID))
		return out, nil
	}

	tx := Transaction{
		ID:          uuid.NewString(),
		ClientID:    a.identity.SerializeClient(client),
		RedirectURI: client.RedirectURI,
		Scope:       scope,
		State:       req.State,
		UserID:      a.identity.SerializeAccount(user),
		Status:      StateAwaitingUser,
		CreatedAt:   a.Now(),
	}
	if err := a.txs.Save(ctx, sessionID, tx, a.txTTL); err != nil {
		return Outcome{}, err
	}
	log.Info("authorize: awaiting user decision", logger.TransactionID(tx.ID))
	return Outcome{State: StateAwaitingUser, Transaction: &tx, Client: client}, nil
}

// Decide aplica la decisión del usuario. La transacción se consume con Take
// antes de ramificar: sólo el request que la borró puede emitir el token.
func (a *Authorizer) Decide(ctx context.Context, sessionID string, user *repository.Account, req DecisionRequest) (Outcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.decision"), logger.TransactionID(req.TransactionID))

	if user == nil || sessionID == "" {
		return Outcome{}, ErrLoginRequired
	}
	if req.TransactionID == "" {
		return Outcome{}, ErrInvalidRequest
	}
	tx, err := a.txs.Load(ctx, sessionID, req.TransactionID)
	if err != nil {
		return Outcome{}, err
	}
	if tx.UserID != user.ID || tx.Status != StateAwaitingUser {
		return Outcome{}, ErrTransactionNotFound
	}
	if tx, err = a.txs.Take(ctx, sessionID, tx.ID); err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			log.Warn("authorize: transaction already decided")
		}
		return Outcome{}, err
	}

	if !req.Allow {
		log.Info("authorize: denied by user", logger.UserID(user.ID))
		return Outcome{
			State:       StateDenied,
			Decision:    StateUserDecided,
			RedirectURL: fragmentURL(tx.RedirectURI, url.Values{"error": {"access_denied"}}, tx.State),
		}, nil
	}

	client, err := a.identity.DeserializeClient(ctx, tx.ClientID)
	if repository.IsNotFound(err) {
		return Outcome{}, ErrInvalidClient
	}
	if err != nil {
		return Outcome{}, err
	}
	// el cliente pudo cambiar su redirect mientras el usuario decidía
	if client.RedirectURI != tx.RedirectURI {
		return Outcome{}, ErrInvalidRedirect
	}
	// cliente o cuenta pudieron perder scopes mientras el usuario decidía
	if !ScopeWithin(tx.Scope, client.Scope) || !ScopeWithin(tx.Scope, user.Scope) {
		log.Warn("authorize: scope no longer grantable", logger.UserID(user.ID))
		return Outcome{}, ErrInvalidScope
	}

	out, err := a.grant(ctx, client, user, tx.RedirectURI, tx.Scope, tx.State)
	if err != nil {
		return Outcome{}, err
	}
	out.Decision = StateUserDecided
	return out, nil
}

// grantableScope resuelve el scope del implicit grant. Un scope pedido debe estar
// contenido en el del cliente y en el de la cuenta; si no se pide, se usa la
// intersección de ambos. Un resultado vacío es ErrInvalidScope.
func grantableScope(requested string, client *repository.Client, user *repository.Account) (string, error) {
	if strings.TrimSpace(requested) == "" {
		s := IntersectScope(client.Scope, user.Scope)
		if s == "" {
			return "", ErrInvalidScope
		}
		return s, nil
	}
	fields, err := ParseScope(requested)
	if err != nil {
		return "", err
	}
	if !ScopeWithin(requested, client.Scope) || !ScopeWithin(requested, user.Scope) {
		return "", ErrInvalidScope
	}
	return strings.Join(fields, " "), nil
}

// ClientCredentials emite un token para el cliente autenticado, sin usuario ni
// estado de sesión. scope vacío toma el scope registrado del cliente.
func (a *Authorizer) ClientCredentials(ctx context.Context, client *repository.Client, scope string) (Grant, error) {
	if scope == "" {
		scope = client.Scope
	} else if !ScopeWithin(scope, client.Scope) {
		return Grant{}, ErrInvalidScope
	}
	return a.issuer.Issue(ctx, client, nil, scope)
}

func (a *Authorizer) grant(ctx context.Context, client *repository.Client, user *repository.Account, redirectURI, scope, state string) (Outcome, error) {
	g, err := a.issuer.Issue(ctx, client, user, scope)
	if err != nil {
		return Outcome{}, err
	}
	v := url.Values{
		"access_token": {g.AccessToken},
		"expires_in":   {strconv.FormatInt(g.ExpiresIn, 10)},
		"token_type":   {g.TokenType},
	}
	if g.Scope != "" {
		v.Set("scope", g.Scope)
	}
	return Outcome{
		State:       StateGrantIssued,
		Client:      client,
		Grant:       &g,
		RedirectURL: fragmentURL(redirectURI, v, state),
	}, nil
}

// fragmentURL devuelve redirectURI con los parámetros en el fragmento.
func fragmentURL(redirectURI string, v url.Values, state string) string {
	if state != "" {
		v.Set("state", state)
	}
	base := redirectURI
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	return base + "#" + v.Encode()
}
