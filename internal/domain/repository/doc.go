// Package repository define los registros de dominio (Account, Client, AccessToken)
// y los contratos de repositorio que consumen auth y oauth.
//
// Las implementaciones viven en internal/store, sobre el servicio de persistencia
// remoto (colecciones account, client, access_token).
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Ausencia => ErrNotFound; fallas de transporte se propagan sin mapear
//   - Los hashes nunca salen por la API pública (ver Public*)
package repository

// Colecciones del store remoto.
const (
	CollectionAccount     = "account"
	CollectionClient      = "client"
	CollectionAccessToken = "access_token"
)
