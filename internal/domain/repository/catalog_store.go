package repository

import (
	"context"

	"github.com/jhoicas/pos-terminal/internal/domain/entity"
)

// CatalogStore define el puerto del almacén de catálogo (DIP).
// Garantiza read-after-write para las escrituras del propio llamador; NO ofrece
// aislamiento entre terminales: dos cajas pueden descontar el mismo producto
// sin coordinación.
type CatalogStore interface {
	// List devuelve el catálogo completo (refresco wholesale del caché).
	List(ctx context.Context) ([]*entity.Product, error)
	// GetByID obtiene el registro autoritativo; (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// UpdateQuantity escribe el nuevo stock absoluto del producto.
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	// Update actualiza los campos editables del producto.
	Update(ctx context.Context, product *entity.Product) error
}
