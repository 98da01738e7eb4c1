package password

import (
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Verify compara plain contra un hash argon2id (PHC) o bcrypt.
// Formatos desconocidos o secretos vacíos nunca verifican.
func Verify(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return verifyArgon2id(plain, hash)
	case isBcrypt(hash):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	default:
		return false
	}
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// Dummy ejecuta una verificación contra un hash descartable para que el tiempo de
// respuesta ante un usuario inexistente sea comparable al de una contraseña incorrecta.
func Dummy(plain string) {
	dummyOnce.Do(func() {
		h, err := Hash(Default, "widgetauth-dummy-secret")
		if err == nil {
			dummyHash = h
		}
	})
	if dummyHash != "" {
		_ = verifyArgon2id(plain, dummyHash)
	}
}
