// Package store define la capacidad mínima que este servicio consume del
// servicio de persistencia (create / filter / read / update / delete) y los
// repositorios tipados construidos encima.
//
// Los drivers concretos (remote, memory) se registran en init() y se abren
// con Open, igual que los adapters de base de datos.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Store es el contrato acotado contra el servicio de persistencia.
// Todos los métodos son una única operación atómica en el store.
type Store interface {
	// Create inserta entity en coll y decodifica el registro guardado (con _id) en out.
	Create(ctx context.Context, coll string, entity any, out any) error

	// Filter devuelve el primer registro cuyo field == value.
	// found=false (sin error) si no hay coincidencias.
	Filter(ctx context.Context, coll, field, value string, out any) (found bool, err error)

	// Read busca por criterios arbitrarios con proyección opcional.
	Read(ctx context.Context, coll string, criteria, projection map[string]any, out any) (found bool, err error)

	// Update reemplaza los campos de entity en el registro que matchea criteria.
	Update(ctx context.Context, coll string, criteria map[string]any, entity any, out any) error

	// Delete borra los registros que matchean criteria. Borrar algo inexistente
	// devuelve Deleted=0 sin error.
	Delete(ctx context.Context, coll string, criteria map[string]any) (DeleteResult, error)

	// Ping verifica que el store responde.
	Ping(ctx context.Context) error
}

// DeleteResult es la respuesta de Delete.
type DeleteResult struct {
	Deleted int `json:"deleted"`
}

// Kind clasifica una falla del store.
type Kind int

const (
	// KindTransport: red caída, timeout o 5xx. Reintentable, nunca "credencial inválida".
	KindTransport Kind = iota + 1
	// KindRejected: el store rechazó la operación (4xx distinto de 404).
	KindRejected
	// KindDecode: respuesta con formato inesperado.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error es una falla del store con la operación y colección involucradas.
type Error struct {
	Op         string
	Collection string
	Kind       Kind
	Status     int // HTTP status si aplica
	Err        error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store: %s %s: %s (status %d): %v", e.Op, e.Collection, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %s: %v", e.Op, e.Collection, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport indica si err es una falla de transporte/backend del store.
func IsTransport(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindTransport
}

// IsStoreError indica si err proviene del store (cualquier Kind).
func IsStoreError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
