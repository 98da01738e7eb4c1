// Package validation reglas de formato para scopes y redirect URIs registrados.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Nombres de scope:
// - minúsculas, empiezan y terminan en [a-z0-9]
// - en el medio se permite [a-z0-9:_.-]
// - 1..64 caracteres
//
// Válidos: user, contributor, profile:read, a_b-c.d:scope2
// Inválidos: "", UPPER, :lead, trail:, semicolon;hack
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName indica si name es un scope individual bien formado.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// ValidScopeList valida un scope separado por espacios. Vacío es válido.
func ValidScopeList(scope string) error {
	for _, s := range strings.Fields(scope) {
		if !ValidScopeName(s) {
			return fmt.Errorf("invalid scope name %q", s)
		}
	}
	return nil
}

// ValidRedirectURI exige URI absoluta, sin fragmento. El match contra el
// redirect pedido es exacto, así que no se normaliza nada.
func ValidRedirectURI(raw string) error {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid redirect uri: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("redirect uri %q must be absolute", raw)
	}
	if u.Fragment != "" || strings.Contains(raw, "#") {
		return fmt.Errorf("redirect uri %q must not contain a fragment", raw)
	}
	return nil
}
