// Package oauth implementa el núcleo OAuth2 del servicio: emisión e
// introspección de access tokens opacos, la transacción de autorización
// (implicit grant con consentimiento o bypass para clientes trusted), el grant
// client_credentials del token endpoint y el serializador de identidades de sesión.
//
// Todas las lecturas y escrituras pasan por los repositorios de
// internal/domain/repository. Una credencial o token inválido es un resultado
// (ErrInvalidToken, ErrInvalidClient, ...); una falla del store se devuelve tal
// cual para que el caller la distinga de una credencial inválida.
package oauth
