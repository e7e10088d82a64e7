package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de pago soportados (conjunto cerrado).
const (
	PaymentCash  = "cash"
	PaymentCard  = "card"
	PaymentGCash = "gcash"
)

// ValidPaymentMethod verifica que el método pertenezca al conjunto cerrado.
func ValidPaymentMethod(m string) bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentGCash
}

// Transaction representa una venta cerrada. Inmutable una vez creada:
// subtotal = Σ subtotales de línea; tax = subtotal × tasa; total = subtotal + tax.
// Solo la elimina una operación administrativa.
type Transaction struct {
	ID              string
	CreatedAt       time.Time
	Lines           []TransactionLine
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	PaymentMethod   string
	ReceivedAmount  decimal.Decimal
	Change          decimal.Decimal
	ReferenceNumber string // requerido para card/gcash
}

// TransactionLine es la instantánea de una línea del carrito al momento del cobro.
type TransactionLine struct {
	ProductID string
	Name      string
	Category  string
	Price     decimal.Decimal // precio unitario al momento de agregar
	Quantity  int
	Subtotal  decimal.Decimal
}
