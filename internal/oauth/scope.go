package oauth

import (
	"fmt"
	"strings"

	"github.com/dropDatabas3/widgetauth/internal/validation"
)

// Wildcard satisface cualquier scope.
const Wildcard = "*"

// ValidScopeName indica si name es un scope bien formado (o el wildcard).
func ValidScopeName(name string) bool {
	return name == Wildcard || validation.ValidScopeName(name)
}

// ParseScope separa un scope por espacios o comas y valida cada nombre.
func ParseScope(s string) ([]string, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	for _, f := range fields {
		if !ValidScopeName(f) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidScope, f)
		}
	}
	return fields, nil
}

// HasScope indica si granted incluye required. "*" en granted satisface todo.
func HasScope(granted, required string) bool {
	have, _ := ParseScope(granted)
	for _, g := range have {
		if g == Wildcard || g == required {
			return true
		}
	}
	return false
}

// IntersectScope devuelve los scopes de a también concedidos por b, separados
// por espacio. "*" de un lado deja pasar los del otro.
func IntersectScope(a, b string) string {
	as, _ := ParseScope(a)
	for _, s := range as {
		if s == Wildcard {
			as, _ = ParseScope(b)
			b = a
			break
		}
	}
	out := make([]string, 0, len(as))
	for _, s := range as {
		if HasScope(b, s) {
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

// ScopeWithin indica si todos los scopes de requested están en allowed.
func ScopeWithin(requested, allowed string) bool {
	req, err := ParseScope(requested)
	if err != nil {
		return false
	}
	for _, r := range req {
		if !HasScope(allowed, r) {
			return false
		}
	}
	return true
}
