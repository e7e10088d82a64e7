package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-terminal/internal/application/catalog"
	"github.com/jhoicas/pos-terminal/internal/application/dto"
)

// CatalogHandler expone el espejo en memoria del catálogo.
type CatalogHandler struct {
	cache *catalog.Cache
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(cache *catalog.Cache) *CatalogHandler {
	return &CatalogHandler{cache: cache}
}

// List godoc
// @Summary      Listar el catálogo desde el caché (posiblemente desactualizado)
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ProductResponse
// @Router       /api/products [get]
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	snapshot := h.cache.Snapshot()
	out := make([]dto.ProductResponse, len(snapshot))
	for i, p := range snapshot {
		out[i] = dto.ToProductResponse(p)
	}
	return c.JSON(out)
}

// Refresh godoc
// @Summary      Refrescar el caché de catálogo (limitado por frecuencia)
// @Tags         catalog
// @Security     Bearer
// @Success      204
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/catalog/refresh [post]
func (h *CatalogHandler) Refresh(c *fiber.Ctx) error {
	if err := h.cache.Refresh(c.Context()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "REFRESH_FAILED", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
