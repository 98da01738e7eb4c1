// Package oauth contiene los DTOs de los endpoints OAuth y de introspección.
package oauth

import "github.com/dropDatabas3/widgetauth/internal/domain/repository"

// ConsentClient es la parte del cliente que ve el usuario al consentir.
type ConsentClient struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// ConsentResponse describe una transacción en AWAITING_USER. La UI de
// consentimiento la renderiza y responde con POST /oauth/authorize/decision.
type ConsentResponse struct {
	Status        string                   `json:"status"` // "awaiting_user"
	TransactionID string                   `json:"transaction_id"`
	Client        ConsentClient            `json:"client"`
	Scope         string                   `json:"scope"`
	User          repository.PublicAccount `json:"user"`
	DecisionURL   string                   `json:"decision_url"`
}

// UserInfoResponse es el cuerpo de GET /user/info.
type UserInfoResponse struct {
	Audience  any    `json:"audience"`
	Scope     string `json:"scope"`
	ExpiresIn int64  `json:"expires_in"`
	IsValid   bool   `json:"isValid"`
}

// DecisionRequest es el body JSON alternativo del POST de decisión.
type DecisionRequest struct {
	TransactionID string `json:"transaction_id"`
	Allow         *bool  `json:"allow,omitempty"`
	Cancel        string `json:"cancel,omitempty"`
}
