package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-terminal/internal/domain"
	"github.com/jhoicas/pos-terminal/internal/domain/repository"
)

// Line es una línea del carrito: referencia débil al producto más una
// instantánea de nombre/categoría/precio tomada al agregarlo.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal de la línea (precio × cantidad).
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals totales derivados del carrito; nunca se almacenan.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Cart es la venta en curso de un terminal. Antes de cada mutación se vuelve a
// leer el stock autoritativo del Catalog Store: eso estrecha, pero no elimina,
// la carrera contra otro terminal que descuenta el mismo producto entre la
// verificación y el cobro final. Esa carrera no está resuelta aquí.
type Cart struct {
	store   repository.CatalogStore
	taxRate decimal.Decimal

	mu    sync.Mutex
	lines []Line // orden de inserción, relevante solo para mostrar
}

// New construye un carrito vacío.
func New(store repository.CatalogStore, taxRate decimal.Decimal) *Cart {
	return &Cart{store: store, taxRate: taxRate}
}

// Add agrega una unidad del producto. Rechaza con ErrInsufficientStock cuando
// el stock autoritativo ya está cubierto por lo que hay en el carrito.
func (c *Cart) Add(ctx context.Context, productID string) error {
	product, err := c.store.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	inCart := 0
	idx := -1
	for i, l := range c.lines {
		if l.ProductID == productID {
			inCart = l.Quantity
			idx = i
			break
		}
	}

	if product.Quantity <= inCart {
		return domain.ErrInsufficientStock
	}

	if idx >= 0 {
		c.lines[idx].Quantity++
		return nil
	}
	c.lines = append(c.lines, Line{
		ProductID: product.ID,
		Name:      product.Name,
		Category:  product.Category,
		Price:     product.Price,
		Quantity:  1,
	})
	return nil
}

// UpdateQuantity fija la cantidad de una línea. newQty < 1 elimina la línea;
// en otro caso se verifica contra el stock autoritativo.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, newQty int) error {
	if newQty < 1 {
		c.Remove(productID)
		return nil
	}

	product, err := c.store.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}
	if newQty > product.Quantity {
		return domain.ErrInsufficientStock
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity = newQty
			return nil
		}
	}
	return domain.ErrNotFound
}

// Remove elimina la línea sin condiciones.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, l := range c.lines {
		if l.ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear vacía el carrito (cobro exitoso o limpieza explícita).
func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

// Lines devuelve una copia de las líneas en orden de inserción.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Empty indica si el carrito no tiene líneas.
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Totals calcula subtotal, impuesto (subtotal × tasa) y total.
func (c *Cart) Totals() Totals {
	return TotalsOf(c.Lines(), c.taxRate)
}

// TaxRate devuelve la tasa de impuesto configurada.
func (c *Cart) TaxRate() decimal.Decimal {
	return c.taxRate
}

// TotalsOf calcula los totales de un conjunto de líneas.
func TotalsOf(lines []Line, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	tax := subtotal.Mul(taxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
