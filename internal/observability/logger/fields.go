package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// UserID identifica la cuenta (resource owner).
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// ClientID identifica el cliente OAuth (clientId público, no el _id).
func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// Username de la cuenta. Nunca loguear el password.
func Username(v string) zap.Field { return zap.String("username", v) }

// TransactionID de una transacción de autorización.
func TransactionID(v string) zap.Field { return zap.String("transaction_id", v) }

// Strategy es el nombre de la estrategia de credenciales.
func Strategy(v string) zap.Field { return zap.String("strategy", v) }

// TokenHint loguea un prefijo del sha256 del token, nunca el token.
func TokenHint(tok string) zap.Field {
	if tok == "" {
		return zap.Skip()
	}
	sum := sha256.Sum256([]byte(tok))
	return zap.String("token_hint", hex.EncodeToString(sum[:4]))
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

func Component(v string) zap.Field  { return zap.String("component", v) }
func Op(v string) zap.Field         { return zap.String("op", v) }
func Layer(v string) zap.Field      { return zap.String("layer", v) }
func Collection(v string) zap.Field { return zap.String("collection", v) }
func Attempt(v int) zap.Field       { return zap.Int("attempt", v) }
func Err(err error) zap.Field       { return zap.Error(err) }

// Delay para esperas de retry.
func Delay(v time.Duration) zap.Field { return zap.Duration("delay", v) }

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
