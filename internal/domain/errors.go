package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
// El descarte de teclas por debajo del umbral NO es un error: el decodificador
// simplemente no emite.
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUnknownBarcode     = errors.New("código de barras desconocido")
	ErrOutOfStock         = errors.New("producto sin stock")
	ErrDuplicateBarcode   = errors.New("código de barras ya registrado")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrInvalidPayment     = errors.New("pago inválido")
	ErrEmptyCart          = errors.New("el carrito está vacío")
	ErrTransactionPersist = errors.New("no se pudo guardar la transacción")
)

// InventoryApplyError señala que la transacción ya quedó guardada pero uno o más
// descuentos de inventario fallaron. La transacción NO se revierte; los ids
// fallidos quedan disponibles para conciliación manual.
type InventoryApplyError struct {
	TransactionID    string
	FailedProductIDs []string
}

func (e *InventoryApplyError) Error() string {
	return fmt.Sprintf("transacción %s guardada pero fallaron descuentos de inventario: %s",
		e.TransactionID, strings.Join(e.FailedProductIDs, ", "))
}

// IsInventoryApply verifica si err es (o envuelve) un InventoryApplyError.
func IsInventoryApply(err error) (*InventoryApplyError, bool) {
	var applyErr *InventoryApplyError
	if errors.As(err, &applyErr) {
		return applyErr, true
	}
	return nil, false
}
