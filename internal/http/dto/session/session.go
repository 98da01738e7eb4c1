// Package session contiene los DTOs de login/logout.
package session

import "github.com/dropDatabas3/widgetauth/internal/domain/repository"

// LoginRequest acepta JSON o form (username, password, return_to).
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ReturnTo string `json:"return_to,omitempty"`
}

// LoginHint es la respuesta de GET /login: la UI de login es externa.
type LoginHint struct {
	Message  string   `json:"message"`
	Fields   []string `json:"fields"`
	ReturnTo string   `json:"return_to,omitempty"`
}

// LoginResponse se devuelve cuando no hay return_to.
type LoginResponse struct {
	User repository.PublicAccount `json:"user"`
}

// LogoutResponse confirma el cierre de sesión.
type LogoutResponse struct {
	Status string `json:"status"`
}
