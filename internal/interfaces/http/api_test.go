package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-terminal/internal/application/cart"
	"github.com/jhoicas/pos-terminal/internal/application/catalog"
	"github.com/jhoicas/pos-terminal/internal/application/checkout"
	"github.com/jhoicas/pos-terminal/internal/application/scanner"
	"github.com/jhoicas/pos-terminal/internal/domain/entity"
	apphttp "github.com/jhoicas/pos-terminal/internal/interfaces/http"
	"github.com/jhoicas/pos-terminal/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes de los stores
// ──────────────────────────────────────────────────────────────────────────────

type fakeCatalogStore struct {
	mu       sync.Mutex
	products map[string]*entity.Product
}

func (f *fakeCatalogStore) List(ctx context.Context) ([]*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Product, 0, len(f.products))
	for _, p := range f.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeCatalogStore) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalogStore) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[id]; ok {
		p.Quantity = quantity
	}
	return nil
}

func (f *fakeCatalogStore) Update(ctx context.Context, product *entity.Product) error { return nil }

type fakeTxStore struct {
	mu      sync.Mutex
	created []*entity.Transaction
}

func (f *fakeTxStore) Create(ctx context.Context, tx *entity.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, tx)
	return nil
}

func (f *fakeTxStore) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.created {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, nil
}

func (f *fakeTxStore) List(ctx context.Context, limit, offset int) ([]*entity.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Transaction, len(f.created))
	copy(out, f.created)
	return out, nil
}

func (f *fakeTxStore) Delete(ctx context.Context, id string) error {
	return errors.New("no usado en estos tests")
}

// buildAPI arma la aplicación completa con stores falsos.
func buildAPI(t *testing.T, products ...*entity.Product) (*fiber.App, *fakeTxStore) {
	t.Helper()
	log := logger.New(logger.Config{Env: "development", Level: "error"})

	m := make(map[string]*entity.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	store := &fakeCatalogStore{products: m}
	txStore := &fakeTxStore{}

	cache := catalog.NewCache(store, 0, log)
	require.NoError(t, cache.Refresh(context.Background()))

	bus := EventBus.New()
	saleCart := cart.New(store, decimal.RequireFromString("0.12"))
	mailbox := scanner.NewMailbox(3 * time.Second)
	scanRouter := scanner.NewRouter(cache, saleCart, mailbox, bus, scanner.DedupPolicy{
		Windows: map[string]time.Duration{scanner.ScreenSale: 500 * time.Millisecond},
		Default: 2 * time.Second,
	}, log)
	pages := scanner.NewPages(scanRouter, scanner.Timing{
		Idle:        150 * time.Millisecond,
		IdleModal:   100 * time.Millisecond,
		MinLen:      4,
		MinLenModal: 7,
	})
	pipeline := checkout.New(saleCart, store, txStore, cache, bus, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Pages:      pages,
		ScanRouter: scanRouter,
		Mailbox:    mailbox,
		Cart:       saleCart,
		Pipeline:   pipeline,
		Cache:      cache,
		TxStore:    txStore,
		JWTSecret:  testJWTSecret,
	})
	return app, txStore
}

func jsonRequest(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, "cashier"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func enVenta(id, barcode string, price int64, qty int) *entity.Product {
	return &entity.Product{
		ID:       id,
		Name:     "producto " + id,
		Category: "general",
		Price:    decimal.NewFromInt(price),
		Quantity: qty,
		Barcode:  barcode,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests del flujo completo
// ──────────────────────────────────────────────────────────────────────────────

// Escanear en la pantalla de venta agrega al carrito; el cobro en efectivo
// cierra la venta con los totales del escenario de referencia.
func TestAPI_FlujoEscaneoYCobro(t *testing.T) {
	app, txStore := buildAPI(t, enVenta("p-1", "8991234567890", 100, 10))

	// Escaneo (entrada manual del token)
	resp := jsonRequest(t, app, http.MethodPost, "/api/scan", fiber.Map{
		"token": "8991234567890", "screen": "sale",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	action := decode[map[string]any](t, resp)
	assert.Equal(t, "added_to_cart", action["outcome"])

	// Subir la cantidad a 2
	resp = jsonRequest(t, app, http.MethodPut, "/api/cart/items/p-1", fiber.Map{"quantity": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Cobro: efectivo 300 → total 224, cambio 76
	resp = jsonRequest(t, app, http.MethodPost, "/api/checkout", fiber.Map{
		"method": "cash", "received_amount": "300",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[map[string]any](t, resp)
	tx := out["transaction"].(map[string]any)
	assert.Equal(t, "224", tx["total"])
	assert.Equal(t, "76", tx["change"])
	assert.Nil(t, out["inventory_errors"])
	require.Len(t, txStore.created, 1)

	// El carrito quedó vacío
	resp = jsonRequest(t, app, http.MethodGet, "/api/cart", nil)
	carrito := decode[map[string]any](t, resp)
	assert.Empty(t, carrito["lines"])
}

// Tarjeta sin referencia → 400 con INVALID_PAYMENT y el carrito sobrevive.
func TestAPI_TarjetaSinReferencia(t *testing.T) {
	app, txStore := buildAPI(t, enVenta("p-1", "1111", 50, 10))

	resp := jsonRequest(t, app, http.MethodPost, "/api/cart/items", fiber.Map{"product_id": "p-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/api/checkout", fiber.Map{
		"method": "card", "reference_number": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decode[map[string]any](t, resp)
	assert.Equal(t, "INVALID_PAYMENT", errBody["code"])
	assert.Empty(t, txStore.created)

	resp = jsonRequest(t, app, http.MethodGet, "/api/cart", nil)
	carrito := decode[map[string]any](t, resp)
	assert.Len(t, carrito["lines"], 1)
}

// Agregar más unidades de las que hay en stock → 409 INSUFFICIENT_STOCK.
func TestAPI_StockInsuficiente(t *testing.T) {
	app, _ := buildAPI(t, enVenta("p-1", "1111", 50, 1))

	resp := jsonRequest(t, app, http.MethodPost, "/api/cart/items", fiber.Map{"product_id": "p-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/api/cart/items", fiber.Map{"product_id": "p-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// El traspaso desde otra pantalla se consume una sola vez por /api/handoff.
func TestAPI_TraspasoSeConsumeUnaVez(t *testing.T) {
	app, _ := buildAPI(t, enVenta("p-1", "1111", 50, 5))

	resp := jsonRequest(t, app, http.MethodPost, "/api/scan", fiber.Map{
		"token": "1111", "screen": "reports",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodGet, "/api/handoff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[map[string]any](t, resp)
	assert.Equal(t, "p-1", p["id"])

	resp = jsonRequest(t, app, http.MethodGet, "/api/handoff", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Las teclas de una ráfaga de escáner terminan agregando al carrito vía decodificador.
func TestAPI_RafagaDeTeclasAgregaAlCarrito(t *testing.T) {
	app, _ := buildAPI(t, enVenta("p-1", "12345", 50, 5))

	keys := []fiber.Map{}
	for _, r := range "12345" {
		keys = append(keys, fiber.Map{"key": string(r)})
	}
	keys = append(keys, fiber.Map{"key": "Enter"})

	resp := jsonRequest(t, app, http.MethodPost, "/api/terminal/sale/keys", fiber.Map{"keys": keys})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodGet, "/api/cart", nil)
	carrito := decode[map[string]any](t, resp)
	require.Len(t, carrito["lines"], 1)
}

// Sin token no hay acceso a ninguna ruta /api.
func TestAPI_SinTokenRetorna401(t *testing.T) {
	app, _ := buildAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
