package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-terminal/internal/application/cart"
	"github.com/jhoicas/pos-terminal/internal/application/catalog"
	"github.com/jhoicas/pos-terminal/internal/application/checkout"
	"github.com/jhoicas/pos-terminal/internal/domain"
	"github.com/jhoicas/pos-terminal/internal/domain/entity"
	"github.com/jhoicas/pos-terminal/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeCatalogStore struct {
	mu        sync.Mutex
	products  map[string]*entity.Product
	failQtyOn map[string]bool // productos cuyo descuento debe fallar
	listCalls int
}

func newFakeCatalogStore(products ...*entity.Product) *fakeCatalogStore {
	m := make(map[string]*entity.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeCatalogStore{products: m, failQtyOn: make(map[string]bool)}
}

func (f *fakeCatalogStore) List(ctx context.Context) ([]*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
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
	if f.failQtyOn[id] {
		return errors.New("catalog store caído")
	}
	if p, ok := f.products[id]; ok {
		p.Quantity = quantity
	}
	return nil
}

func (f *fakeCatalogStore) Update(ctx context.Context, product *entity.Product) error { return nil }

func (f *fakeCatalogStore) quantity(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Quantity
}

type fakeTxStore struct {
	mu      sync.Mutex
	created []*entity.Transaction
	fail    bool
}

func (f *fakeTxStore) Create(ctx context.Context, tx *entity.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("transaction store caído")
	}
	f.created = append(f.created, tx)
	return nil
}

func (f *fakeTxStore) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	return nil, nil
}

func (f *fakeTxStore) List(ctx context.Context, limit, offset int) ([]*entity.Transaction, error) {
	return nil, nil
}

func (f *fakeTxStore) Delete(ctx context.Context, id string) error { return nil }

type fixture struct {
	store    *fakeCatalogStore
	txStore  *fakeTxStore
	cart     *cart.Cart
	pipeline *checkout.Pipeline
}

var iva = decimal.RequireFromString("0.12")

func newFixture(t *testing.T, products ...*entity.Product) *fixture {
	t.Helper()
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	store := newFakeCatalogStore(products...)
	txStore := &fakeTxStore{}
	cache := catalog.NewCache(store, 0, log)
	require.NoError(t, cache.Refresh(context.Background()))
	c := cart.New(store, iva)
	return &fixture{
		store:    store,
		txStore:  txStore,
		cart:     c,
		pipeline: checkout.New(c, store, txStore, cache, EventBus.New(), log),
	}
}

func producto(id string, price int64, qty int) *entity.Product {
	return &entity.Product{
		ID:       id,
		Name:     "producto " + id,
		Category: "general",
		Price:    decimal.NewFromInt(price),
		Quantity: qty,
	}
}

func cash(received string) checkout.PaymentRequest {
	return checkout.PaymentRequest{Method: entity.PaymentCash, ReceivedAmount: received}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

// Escenario: carrito [{precio 100, qty 2}], efectivo 300 → subtotal 200,
// IVA 24, total 224, cambio 76, cobro exitoso.
func TestPipeline_CobroEnEfectivoExitoso(t *testing.T) {
	fx := newFixture(t, producto("p-1", 100, 10))
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))
	require.NoError(t, fx.cart.UpdateQuantity(ctx, "p-1", 2))

	result, err := fx.pipeline.Checkout(ctx, cash("300"))

	require.NoError(t, err)
	tx := result.Transaction
	assert.True(t, tx.Subtotal.Equal(decimal.NewFromInt(200)), "subtotal: %s", tx.Subtotal)
	assert.True(t, tx.Tax.Equal(decimal.NewFromInt(24)), "tax: %s", tx.Tax)
	assert.True(t, tx.Total.Equal(decimal.NewFromInt(224)), "total: %s", tx.Total)
	assert.True(t, tx.Change.Equal(decimal.NewFromInt(76)), "change: %s", tx.Change)

	assert.True(t, fx.cart.Empty(), "el carrito se limpia tras el cobro")
	assert.Equal(t, checkout.StateSettled, fx.pipeline.State())
	assert.Equal(t, 8, fx.store.quantity("p-1"), "el stock debe descontarse")
	require.Len(t, fx.txStore.created, 1)
}

// Propiedad round-trip: subtotal + tax == total para cualquier carrito no vacío.
func TestPipeline_InvarianteDeTotales(t *testing.T) {
	fx := newFixture(t, producto("p-1", 37, 10), producto("p-2", 149, 10))
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))
	require.NoError(t, fx.cart.UpdateQuantity(ctx, "p-1", 3))
	require.NoError(t, fx.cart.Add(ctx, "p-2"))

	result, err := fx.pipeline.Checkout(ctx, cash("10000"))

	require.NoError(t, err)
	tx := result.Transaction
	suma := decimal.Zero
	for _, l := range tx.Lines {
		suma = suma.Add(l.Subtotal)
	}
	assert.True(t, tx.Subtotal.Equal(suma), "subtotal = Σ subtotales de línea")
	assert.True(t, tx.Total.Equal(tx.Subtotal.Add(tx.Tax)), "total = subtotal + tax")
}

// Escenario: tarjeta sin número de referencia → rechazo con pago inválido y
// carrito intacto.
func TestPipeline_TarjetaSinReferenciaRechazada(t *testing.T) {
	fx := newFixture(t, producto("p-1", 50, 10))
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))

	_, err := fx.pipeline.Checkout(ctx, checkout.PaymentRequest{Method: entity.PaymentCard})

	assert.ErrorIs(t, err, domain.ErrInvalidPayment)
	assert.False(t, fx.cart.Empty(), "el carrito no debe tocarse")
	assert.Equal(t, checkout.StateCollecting, fx.pipeline.State())
	assert.Empty(t, fx.txStore.created)
}

// card/gcash: el monto recibido se fuerza al total y el cambio es cero.
func TestPipeline_GcashForzaMontoYSinCambio(t *testing.T) {
	fx := newFixture(t, producto("p-1", 100, 10))
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))

	result, err := fx.pipeline.Checkout(ctx, checkout.PaymentRequest{
		Method:          entity.PaymentGCash,
		ReceivedAmount:  "999999", // se ignora
		ReferenceNumber: "REF-001",
	})

	require.NoError(t, err)
	tx := result.Transaction
	assert.True(t, tx.ReceivedAmount.Equal(tx.Total))
	assert.True(t, tx.Change.IsZero())
}

// Efectivo insuficiente o monto no parseable → pago inválido.
func TestPipeline_EfectivoInvalido(t *testing.T) {
	casos := []struct {
		nombre   string
		recibido string
	}{
		{"insuficiente", "100"},
		{"no numérico", "abc"},
		{"negativo", "-5"},
		{"vacío", ""},
	}
	for _, tc := range casos {
		t.Run(tc.nombre, func(t *testing.T) {
			fx := newFixture(t, producto("p-1", 100, 10))
			ctx := context.Background()
			require.NoError(t, fx.cart.Add(ctx, "p-1"))

			_, err := fx.pipeline.Checkout(ctx, cash(tc.recibido))

			assert.ErrorIs(t, err, domain.ErrInvalidPayment)
			assert.False(t, fx.cart.Empty())
		})
	}
}

// Carrito vacío: rechazo inmediato.
func TestPipeline_CarritoVacioRechazado(t *testing.T) {
	fx := newFixture(t, producto("p-1", 100, 10))

	_, err := fx.pipeline.Checkout(context.Background(), cash("100"))

	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

// Fallo al persistir: el cobro aborta completo, carrito intacto, sin tocar stock.
func TestPipeline_FalloDePersistenciaConservaCarrito(t *testing.T) {
	fx := newFixture(t, producto("p-1", 100, 10))
	fx.txStore.fail = true
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))

	_, err := fx.pipeline.Checkout(ctx, cash("300"))

	assert.ErrorIs(t, err, domain.ErrTransactionPersist)
	assert.False(t, fx.cart.Empty(), "el carrito queda intacto para reintentar manualmente")
	assert.Equal(t, checkout.StateCollecting, fx.pipeline.State())
	assert.Equal(t, 10, fx.store.quantity("p-1"), "el inventario no debe tocarse")
}

// Fallo parcial de inventario: la transacción queda guardada (SETTLED) y el
// error clasificado lleva los ids fallidos para conciliación.
func TestPipeline_FalloParcialDeInventarioQuedaSettled(t *testing.T) {
	fx := newFixture(t, producto("p-1", 100, 10), producto("p-2", 50, 10))
	fx.store.failQtyOn["p-2"] = true
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))
	require.NoError(t, fx.cart.Add(ctx, "p-2"))

	result, err := fx.pipeline.Checkout(ctx, cash("1000"))

	require.Error(t, err)
	applyErr, ok := domain.IsInventoryApply(err)
	require.True(t, ok, "el error debe ser InventoryApplyError")
	assert.Equal(t, []string{"p-2"}, applyErr.FailedProductIDs)

	require.NotNil(t, result)
	require.Len(t, fx.txStore.created, 1, "la transacción ya quedó guardada")
	assert.Equal(t, checkout.StateSettled, fx.pipeline.State())
	assert.Equal(t, 9, fx.store.quantity("p-1"), "la línea sana sí se descuenta")
	assert.Equal(t, 10, fx.store.quantity("p-2"), "la línea fallida queda sin aplicar")
}

// El descuento escribe max(0, actual - pedido): nunca stock negativo.
func TestPipeline_DescuentoNuncaDejaStockNegativo(t *testing.T) {
	fx := newFixture(t, producto("p-1", 100, 2))
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))
	require.NoError(t, fx.cart.Add(ctx, "p-1"))

	// Otro terminal vació el stock entre el armado del carrito y el cobro.
	require.NoError(t, fx.store.UpdateQuantity(ctx, "p-1", 1))

	_, err := fx.pipeline.Checkout(ctx, cash("1000"))

	require.NoError(t, err)
	assert.Equal(t, 0, fx.store.quantity("p-1"))
}

// Tras el cobro se fuerza un refresco del catálogo (paso incondicional).
func TestPipeline_CobroRefrescaCatalogo(t *testing.T) {
	fx := newFixture(t, producto("p-1", 100, 10))
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))

	antes := fx.store.listCalls
	_, err := fx.pipeline.Checkout(ctx, cash("300"))

	require.NoError(t, err)
	assert.Equal(t, antes+1, fx.store.listCalls)
}

// Método fuera del conjunto cerrado: pago inválido.
func TestPipeline_MetodoNoSoportado(t *testing.T) {
	fx := newFixture(t, producto("p-1", 100, 10))
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "p-1"))

	_, err := fx.pipeline.Checkout(ctx, checkout.PaymentRequest{Method: "cheque"})

	assert.ErrorIs(t, err, domain.ErrInvalidPayment)
}
