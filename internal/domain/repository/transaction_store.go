package repository

import (
	"context"

	"github.com/jhoicas/pos-terminal/internal/domain/entity"
)

// TransactionStore define el puerto de persistencia de ventas.
// Create no es idempotente: una doble llamada crea dos registros, por eso el
// pipeline nunca reintenta automáticamente.
type TransactionStore interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	// GetByID devuelve la transacción con sus líneas; (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Transaction, error)
	// Delete es una capacidad administrativa (requiere rol admin en la capa HTTP).
	Delete(ctx context.Context, id string) error
}
