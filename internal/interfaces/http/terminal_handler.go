package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-terminal/internal/application/dto"
	"github.com/jhoicas/pos-terminal/internal/application/scanner"
)

// TerminalHandler expone el decodificador de escáner y el buzón de traspaso.
type TerminalHandler struct {
	pages   *scanner.Pages
	router  *scanner.Router
	mailbox *scanner.Mailbox
}

// NewTerminalHandler construye el handler.
func NewTerminalHandler(pages *scanner.Pages, router *scanner.Router, mailbox *scanner.Mailbox) *TerminalHandler {
	return &TerminalHandler{pages: pages, router: router, mailbox: mailbox}
}

// Keys godoc
// @Summary      Enviar teclas crudas al decodificador de una página
// @Tags         terminal
// @Security     Bearer
// @Accept       json
// @Param        page  path  string  true  "Página activa"
// @Param        body  body  dto.KeysRequest  true  "Lote de teclas en orden de llegada"
// @Success      202
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/terminal/{page}/keys [post]
func (h *TerminalHandler) Keys(c *fiber.Ctx) error {
	page := c.Params("page")
	if page == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_PAGE", Message: "page es requerido"})
	}
	var in dto.KeysRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	d := h.pages.Decoder(page)
	for _, ev := range in.Keys {
		d.Key(ev)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// Suspend godoc
// @Summary      Suspender el escaneo de una página (contador reentrante)
// @Tags         terminal
// @Security     Bearer
// @Param        page  path  string  true  "Página"
// @Success      204
// @Router       /api/terminal/{page}/suspend [post]
func (h *TerminalHandler) Suspend(c *fiber.Ctx) error {
	h.pages.Decoder(c.Params("page")).Suspend()
	return c.SendStatus(fiber.StatusNoContent)
}

// Resume godoc
// @Summary      Reanudar el escaneo de una página
// @Tags         terminal
// @Security     Bearer
// @Param        page  path  string  true  "Página"
// @Success      204
// @Router       /api/terminal/{page}/resume [post]
func (h *TerminalHandler) Resume(c *fiber.Ctx) error {
	h.pages.Decoder(c.Params("page")).Resume()
	return c.SendStatus(fiber.StatusNoContent)
}

// Reset godoc
// @Summary      Descartar el buffer de escaneo de una página (cambio de página)
// @Tags         terminal
// @Security     Bearer
// @Param        page  path  string  true  "Página"
// @Success      204
// @Router       /api/terminal/{page}/reset [post]
func (h *TerminalHandler) Reset(c *fiber.Ctx) error {
	h.pages.Decoder(c.Params("page")).Reset()
	return c.SendStatus(fiber.StatusNoContent)
}

// Scan godoc
// @Summary      Resolver un token directamente (entrada manual)
// @Tags         terminal
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ScanRequest  true  "Token y pantalla activa"
// @Success      200   {object}  scanner.Action
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/scan [post]
func (h *TerminalHandler) Scan(c *fiber.Ctx) error {
	var in dto.ScanRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Token == "" || in.Screen == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "token y screen son requeridos"})
	}
	action := h.router.Route(c.Context(), in.Token, in.Screen)
	return c.JSON(action)
}

// Handoff godoc
// @Summary      Consumir el traspaso pendiente hacia la pantalla de venta
// @Tags         terminal
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/handoff [get]
func (h *TerminalHandler) Handoff(c *fiber.Ctx) error {
	p := h.mailbox.Consume()
	if p == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "EMPTY", Message: "sin traspaso pendiente"})
	}
	return c.JSON(dto.ToProductResponse(p))
}
