package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-terminal/internal/application/checkout"
	"github.com/jhoicas/pos-terminal/internal/application/dto"
	"github.com/jhoicas/pos-terminal/internal/domain"
)

// CheckoutHandler expone el pipeline de cobro.
type CheckoutHandler struct {
	pipeline *checkout.Pipeline
}

// NewCheckoutHandler construye el handler.
func NewCheckoutHandler(p *checkout.Pipeline) *CheckoutHandler {
	return &CheckoutHandler{pipeline: p}
}

// Checkout godoc
// @Summary      Cobrar la venta en curso
// @Description  201 con inventory_errors no vacío significa que la venta quedó
// @Description  registrada pero algunos descuentos de stock fallaron (conciliar).
// @Tags         checkout
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  checkout.PaymentRequest  true  "Método de pago"
// @Success      201   {object}  dto.CheckoutResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/checkout [post]
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	var in checkout.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	result, err := h.pipeline.Checkout(c.Context(), in)
	if err != nil {
		if applyErr, ok := domain.IsInventoryApply(err); ok {
			// La transacción SÍ quedó guardada: responder 201 con los ids fallidos.
			return c.Status(fiber.StatusCreated).JSON(dto.CheckoutResponse{
				Transaction:     dto.ToTransactionResponse(result.Transaction),
				InventoryErrors: applyErr.FailedProductIDs,
			})
		}
		switch {
		case errors.Is(err, domain.ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "EMPTY_CART", Message: "el carrito está vacío"})
		case errors.Is(err, domain.ErrInvalidPayment):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_PAYMENT", Message: err.Error()})
		case errors.Is(err, domain.ErrTransactionPersist):
			return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "PERSIST_FAILURE", Message: "no se pudo guardar la transacción; el carrito sigue intacto"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CheckoutResponse{
		Transaction: dto.ToTransactionResponse(result.Transaction),
	})
}
