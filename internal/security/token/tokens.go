package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// MinBytes es la entropía mínima aceptada para un bearer token (128 bits).
const MinBytes = 16

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
// nBytes=32 da 256 bits y 43 caracteres URL-safe.
func GenerateOpaqueToken(nBytes int) (string, error) {
	if nBytes < MinBytes {
		return "", fmt.Errorf("tokens: %d bytes below minimum %d", nBytes, MinBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Kind identifica el tipo de credencial opaca; cada uno tiene su largo.
type Kind string

const (
	KindAccess            Kind = "access_token"
	KindAuthorizationCode Kind = "authorization_code"
	KindRefresh           Kind = "refresh_token"
)

// Lengths son los bytes de entropía por tipo de credencial.
type Lengths struct {
	Access            int
	AuthorizationCode int
	Refresh           int
}

// DefaultLengths: 256 bits para access y refresh, 128 para códigos.
var DefaultLengths = Lengths{Access: 32, AuthorizationCode: 16, Refresh: 32}

// For devuelve el largo configurado para k (default si es 0).
func (l Lengths) For(k Kind) int {
	var n, def int
	switch k {
	case KindAccess:
		n, def = l.Access, DefaultLengths.Access
	case KindAuthorizationCode:
		n, def = l.AuthorizationCode, DefaultLengths.AuthorizationCode
	case KindRefresh:
		n, def = l.Refresh, DefaultLengths.Refresh
	}
	if n == 0 {
		return def
	}
	return n
}

// Validate exige MinBytes para cada tipo.
func (l Lengths) Validate() error {
	for _, k := range []Kind{KindAccess, KindAuthorizationCode, KindRefresh} {
		if n := l.For(k); n < MinBytes {
			return fmt.Errorf("tokens: %s length %d below minimum %d", k, n, MinBytes)
		}
	}
	return nil
}

// Generate genera una credencial opaca del tipo k.
func (l Lengths) Generate(k Kind) (string, error) {
	return GenerateOpaqueToken(l.For(k))
}
