package main

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-terminal/internal/application/cart"
	"github.com/jhoicas/pos-terminal/internal/application/catalog"
	"github.com/jhoicas/pos-terminal/internal/application/checkout"
	"github.com/jhoicas/pos-terminal/internal/application/scanner"
	"github.com/jhoicas/pos-terminal/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/pos-terminal/internal/interfaces/http"
	"github.com/jhoicas/pos-terminal/pkg/config"
	"github.com/jhoicas/pos-terminal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando terminal")

	taxRate, err := decimal.NewFromString(cfg.POS.TaxRate)
	if err != nil {
		log.Fatal().Err(err).Str("tax_rate", cfg.POS.TaxRate).Msg("tasa de impuesto inválida")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	catalogStore := postgres.NewCatalogStore(pool)
	txStore := postgres.NewTransactionStore(pool)

	cache := catalog.NewCache(catalogStore, cfg.POS.RefreshMinInterval, log)
	if err := cache.ForceRefresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("carga inicial del catálogo")
	}

	bus := EventBus.New()
	// Listener de avisos: todo lo que el router y el pipeline publican queda en el log.
	notifyLog := log.Component("notification")
	_ = bus.Subscribe(scanner.TopicNotification, func(n scanner.Notification) {
		notifyLog.Info().
			Str("kind", n.Kind).
			Str("token", n.Token).
			Str("product", n.Product).
			Msg(n.Message)
	})

	saleCart := cart.New(catalogStore, taxRate)
	mailbox := scanner.NewMailbox(cfg.POS.HandoffGrace)
	scanRouter := scanner.NewRouter(cache, saleCart, mailbox, bus, scanner.DedupPolicy{
		Windows: cfg.POS.DedupWindows,
		Default: cfg.POS.DedupWindowDefault,
	}, log)
	pages := scanner.NewPages(scanRouter, scanner.Timing{
		Idle:        cfg.POS.ScanIdle,
		IdleModal:   cfg.POS.ScanIdleModal,
		MinLen:      cfg.POS.MinTokenLen,
		MinLenModal: cfg.POS.MinTokenLenForm,
	})
	pipeline := checkout.New(saleCart, catalogStore, txStore, cache, bus, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "POS Terminal API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Pages:      pages,
		ScanRouter: scanRouter,
		Mailbox:    mailbox,
		Cart:       saleCart,
		Pipeline:   pipeline,
		Cache:      cache,
		TxStore:    txStore,
		JWTSecret:  cfg.JWT.Secret,
	})

	log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
	if err := app.Listen(cfg.HTTP.Addr()); err != nil {
		log.Fatal().Err(err).Msg("servidor HTTP")
	}
}
