package oauth

import "errors"

var (
	// ErrInvalidToken: token inexistente, vencido o con sujeto huérfano.
	ErrInvalidToken = errors.New("invalid_token")

	ErrInvalidRequest          = errors.New("invalid_request")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrInvalidScope            = errors.New("invalid_scope")

	// ErrInvalidClient: client_id desconocido.
	ErrInvalidClient = errors.New("invalid_client")
	// ErrInvalidRedirect: redirect_uri no coincide exactamente con el registrado.
	ErrInvalidRedirect = errors.New("invalid_redirect_uri")

	// ErrLoginRequired: la transacción necesita un usuario autenticado.
	ErrLoginRequired = errors.New("login_required")
	// ErrTransactionNotFound: transacción inexistente, vencida, ya decidida o de otra sesión.
	ErrTransactionNotFound = errors.New("transaction_not_found")
)
