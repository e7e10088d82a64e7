package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-terminal/internal/application/cart"
	"github.com/jhoicas/pos-terminal/internal/application/catalog"
	"github.com/jhoicas/pos-terminal/internal/application/checkout"
	"github.com/jhoicas/pos-terminal/internal/application/scanner"
	"github.com/jhoicas/pos-terminal/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Pages      *scanner.Pages
	ScanRouter *scanner.Router
	Mailbox    *scanner.Mailbox
	Cart       *cart.Cart
	Pipeline   *checkout.Pipeline
	Cache      *catalog.Cache
	TxStore    repository.TransactionStore
	JWTSecret  string
}

// Router registra las rutas del terminal.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Escáner y traspaso entre pantallas
	terminalHandler := NewTerminalHandler(deps.Pages, deps.ScanRouter, deps.Mailbox)
	terminal := api.Group("/terminal")
	terminal.Post("/:page/keys", terminalHandler.Keys)
	terminal.Post("/:page/suspend", terminalHandler.Suspend)
	terminal.Post("/:page/resume", terminalHandler.Resume)
	terminal.Post("/:page/reset", terminalHandler.Reset)
	api.Post("/scan", terminalHandler.Scan)
	api.Get("/handoff", terminalHandler.Handoff)

	// Venta en curso
	cartHandler := NewCartHandler(deps.Cart)
	api.Get("/cart", cartHandler.Get)
	api.Delete("/cart", cartHandler.Clear)
	api.Post("/cart/items", cartHandler.AddItem)
	api.Put("/cart/items/:productId", cartHandler.UpdateQuantity)
	api.Delete("/cart/items/:productId", cartHandler.RemoveItem)

	// Cobro
	checkoutHandler := NewCheckoutHandler(deps.Pipeline)
	api.Post("/checkout", checkoutHandler.Checkout)

	// Catálogo (espejo en memoria)
	catalogHandler := NewCatalogHandler(deps.Cache)
	api.Get("/products", catalogHandler.List)
	api.Post("/catalog/refresh", catalogHandler.Refresh)

	// Ventas cerradas; eliminar requiere rol admin
	txHandler := NewTransactionHandler(deps.TxStore)
	api.Get("/transactions", txHandler.List)
	api.Get("/transactions/:id", txHandler.GetByID)
	api.Delete("/transactions/:id", RequireRole("admin"), txHandler.Delete)
}
