package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-terminal/internal/application/cart"
	"github.com/jhoicas/pos-terminal/internal/application/scanner"
	"github.com/jhoicas/pos-terminal/internal/domain/entity"
)

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// KeysRequest lote de teclas crudas para el decodificador de una página.
type KeysRequest struct {
	Keys []scanner.KeyEvent `json:"keys"`
}

// ScanRequest resolución directa de un token (entrada manual).
type ScanRequest struct {
	Token  string `json:"token"`
	Screen string `json:"screen"`
}

// AddItemRequest alta de una unidad en el carrito.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
}

// UpdateQuantityRequest cambio de cantidad de una línea.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse estado del carrito con totales derivados.
type CartResponse struct {
	Lines    []cart.Line     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// NewCartResponse arma la respuesta a partir del carrito.
func NewCartResponse(c *cart.Cart) CartResponse {
	totals := c.Totals()
	return CartResponse{
		Lines:    c.Lines(),
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
	}
}

// CheckoutResponse resultado del cobro. InventoryErrors no vacío significa que
// la venta quedó registrada pero algunos descuentos de stock fallaron.
type CheckoutResponse struct {
	Transaction     TransactionResponse `json:"transaction"`
	InventoryErrors []string            `json:"inventory_errors,omitempty"`
}

// TransactionResponse venta persistida.
type TransactionResponse struct {
	ID              string                    `json:"id"`
	CreatedAt       string                    `json:"created_at"`
	Lines           []TransactionLineResponse `json:"lines,omitempty"`
	Subtotal        decimal.Decimal           `json:"subtotal"`
	Tax             decimal.Decimal           `json:"tax"`
	Total           decimal.Decimal           `json:"total"`
	PaymentMethod   string                    `json:"payment_method"`
	ReceivedAmount  decimal.Decimal           `json:"received_amount"`
	Change          decimal.Decimal           `json:"change"`
	ReferenceNumber string                    `json:"reference_number,omitempty"`
}

// TransactionLineResponse línea de la venta.
type TransactionLineResponse struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ProductResponse producto del catálogo (copia del caché, posiblemente desactualizada).
type ProductResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	LowStock          bool            `json:"low_stock"`
	Barcode           string          `json:"barcode,omitempty"`
	ImageURL          string          `json:"image_url,omitempty"`
}

// ToProductResponse convierte la entidad a DTO.
func ToProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		Name:              p.Name,
		Category:          p.Category,
		Price:             p.Price,
		Quantity:          p.Quantity,
		LowStockThreshold: p.LowStockThreshold,
		LowStock:          p.LowStock(),
		Barcode:           p.Barcode,
		ImageURL:          p.ImageURL,
	}
}

// ToTransactionResponse convierte la entidad a DTO.
func ToTransactionResponse(tx *entity.Transaction) TransactionResponse {
	lines := make([]TransactionLineResponse, len(tx.Lines))
	for i, l := range tx.Lines {
		lines[i] = TransactionLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Category:  l.Category,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal,
		}
	}
	return TransactionResponse{
		ID:              tx.ID,
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
		Lines:           lines,
		Subtotal:        tx.Subtotal,
		Tax:             tx.Tax,
		Total:           tx.Total,
		PaymentMethod:   tx.PaymentMethod,
		ReceivedAmount:  tx.ReceivedAmount,
		Change:          tx.Change,
		ReferenceNumber: tx.ReferenceNumber,
	}
}
