package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo.
// Quantity es el stock autoritativo (entero), propiedad del Catalog Store;
// el caché y el carrito solo manejan copias posiblemente desactualizadas.
// Barcode es opcional y el store no garantiza unicidad, aunque el resolutor
// lo trate como único (desempate documentado en el caché).
type Product struct {
	ID                string
	Name              string
	Category          string
	Price             decimal.Decimal
	CostPrice         decimal.Decimal
	Quantity          int
	LowStockThreshold int
	Barcode           string
	ImageURL          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LowStock indica si el stock está en o por debajo del umbral configurado.
func (p *Product) LowStock() bool {
	return p.Quantity <= p.LowStockThreshold
}
