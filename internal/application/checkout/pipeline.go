package checkout

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-terminal/internal/application/cart"
	"github.com/jhoicas/pos-terminal/internal/application/catalog"
	"github.com/jhoicas/pos-terminal/internal/application/scanner"
	"github.com/jhoicas/pos-terminal/internal/domain"
	"github.com/jhoicas/pos-terminal/internal/domain/entity"
	"github.com/jhoicas/pos-terminal/internal/domain/repository"
	"github.com/jhoicas/pos-terminal/pkg/logger"
)

// Estados del pipeline de cobro.
const (
	StateCollecting        = "COLLECTING"
	StateValidating        = "VALIDATING"
	StatePersistingTx      = "PERSISTING_TX"
	StateApplyingInventory = "APPLYING_INVENTORY"
	StateSettled           = "SETTLED"
)

// PaymentRequest es la entrada del cobro. ReceivedAmount llega como string
// desde la UI del terminal y se parsea como decimal solo para efectivo.
type PaymentRequest struct {
	Method          string `json:"method"` // cash | card | gcash
	ReceivedAmount  string `json:"received_amount"`
	ReferenceNumber string `json:"reference_number"`
}

// Result resultado del cobro. InventoryErrors lista los productos cuyo
// descuento falló: la transacción YA quedó guardada aunque la lista no esté
// vacía (ver nota de Pipeline).
type Result struct {
	Transaction     *entity.Transaction
	InventoryErrors []string
}

// Pipeline orquesta el cobro: valida el pago, guarda la transacción como una
// sola escritura y luego lanza los descuentos de inventario de forma
// concurrente e independiente.
//
// Los descuentos NO están coordinados entre sí ni con la escritura de la
// transacción: si alguno falla, la transacción guardada queda inconsistente
// con el catálogo. El pipeline no revierte nada; registra cada resultado por
// línea con el id de la transacción y devuelve los ids fallidos para que el
// operador o el back office concilien. Nada se reintenta automáticamente:
// reintentar la escritura duplicaría la venta.
type Pipeline struct {
	cart    *cart.Cart
	catalog repository.CatalogStore
	txStore repository.TransactionStore
	cache   *catalog.Cache
	bus     EventBus.Bus
	log     *logger.Logger

	mu    sync.Mutex
	state string
}

// New construye el pipeline en estado COLLECTING.
func New(c *cart.Cart, catalogStore repository.CatalogStore, txStore repository.TransactionStore, cache *catalog.Cache, bus EventBus.Bus, log *logger.Logger) *Pipeline {
	return &Pipeline{
		cart:    c,
		catalog: catalogStore,
		txStore: txStore,
		cache:   cache,
		bus:     bus,
		log:     log.Component("checkout"),
		state:   StateCollecting,
	}
}

// State devuelve el estado actual del pipeline.
func (p *Pipeline) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s string) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Checkout ejecuta el cobro completo. En cualquier fallo de validación o de
// persistencia vuelve a COLLECTING con el carrito intacto; un fallo de
// inventario deja el estado en SETTLED (la transacción ya existe) y retorna
// un InventoryApplyError junto con el resultado.
func (p *Pipeline) Checkout(ctx context.Context, req PaymentRequest) (*Result, error) {
	p.setState(StateValidating)

	if p.cart.Empty() {
		p.setState(StateCollecting)
		return nil, domain.ErrEmptyCart
	}

	lines := p.cart.Lines()
	totals := cart.TotalsOf(lines, p.cart.TaxRate())

	received, change, err := validatePayment(req, totals.Total)
	if err != nil {
		p.setState(StateCollecting)
		return nil, err
	}

	// Instantánea inmutable: a partir de aquí el carrito no se vuelve a leer.
	tx := buildTransaction(lines, totals, req, received, change)

	p.setState(StatePersistingTx)
	if err := p.txStore.Create(ctx, tx); err != nil {
		p.setState(StateCollecting)
		p.log.Error().Err(err).Str("transaction", tx.ID).Msg("persistir transacción falló; carrito intacto")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionPersist, err)
	}

	p.setState(StateApplyingInventory)
	failed := p.applyInventory(ctx, tx)

	// Paso incondicional: las siguientes resoluciones deben ver el stock nuevo.
	if err := p.cache.ForceRefresh(ctx); err != nil {
		p.log.Warn().Err(err).Msg("refresco de catálogo tras cobro falló")
	}

	p.cart.Clear()
	p.setState(StateSettled)

	if len(failed) > 0 {
		applyErr := &domain.InventoryApplyError{TransactionID: tx.ID, FailedProductIDs: failed}
		p.bus.Publish(scanner.TopicNotification, scanner.Notification{
			Kind:    "inventory_apply_failure",
			Message: applyErr.Error(),
		})
		return &Result{Transaction: tx, InventoryErrors: failed}, applyErr
	}

	p.bus.Publish(scanner.TopicNotification, scanner.Notification{
		Kind:    "sale_settled",
		Message: "venta registrada: " + tx.ID,
	})
	return &Result{Transaction: tx}, nil
}

// validatePayment aplica las reglas por método y devuelve (recibido, cambio).
func validatePayment(req PaymentRequest, total decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !entity.ValidPaymentMethod(req.Method) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: método de pago no soportado: %s", domain.ErrInvalidPayment, req.Method)
	}
	switch req.Method {
	case entity.PaymentCash:
		received, err := decimal.NewFromString(req.ReceivedAmount)
		if err != nil || received.IsNegative() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: monto recibido inválido", domain.ErrInvalidPayment)
		}
		if received.LessThan(total) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: efectivo insuficiente", domain.ErrInvalidPayment)
		}
		return received, received.Sub(total), nil
	case entity.PaymentCard, entity.PaymentGCash:
		if req.ReferenceNumber == "" {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: número de referencia requerido", domain.ErrInvalidPayment)
		}
		// El monto recibido se fuerza al total; no hay cambio.
		return total, decimal.Zero, nil
	default:
		// Inalcanzable tras ValidPaymentMethod; el switch queda exhaustivo.
		return decimal.Zero, decimal.Zero, domain.ErrInvalidPayment
	}
}

func buildTransaction(lines []cart.Line, totals cart.Totals, req PaymentRequest, received, change decimal.Decimal) *entity.Transaction {
	txLines := make([]entity.TransactionLine, len(lines))
	for i, l := range lines {
		txLines[i] = entity.TransactionLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Category:  l.Category,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		}
	}
	return &entity.Transaction{
		ID:              uuid.New().String(),
		CreatedAt:       time.Now(),
		Lines:           txLines,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Total:           totals.Total,
		PaymentMethod:   req.Method,
		ReceivedAmount:  received,
		Change:          change,
		ReferenceNumber: req.ReferenceNumber,
	}
}

// applyInventory lanza un descuento por línea, cada uno en su propia goroutine
// y sin orden garantizado entre ellos. Devuelve los ids de producto fallidos,
// ordenados para que el resultado sea estable.
func (p *Pipeline) applyInventory(ctx context.Context, tx *entity.Transaction) []string {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []string

	for _, line := range tx.Lines {
		wg.Add(1)
		go func(line entity.TransactionLine) {
			defer wg.Done()
			if err := p.decrement(ctx, line); err != nil {
				p.log.Error().Err(err).
					Str("transaction", tx.ID).
					Str("product", line.ProductID).
					Int("requested", line.Quantity).
					Msg("descuento de inventario falló; conciliar manualmente")
				mu.Lock()
				failed = append(failed, line.ProductID)
				mu.Unlock()
				return
			}
			p.log.Debug().
				Str("transaction", tx.ID).
				Str("product", line.ProductID).
				Int("quantity", line.Quantity).
				Msg("inventario descontado")
		}(line)
	}
	wg.Wait()

	sort.Strings(failed)
	return failed
}

// decrement relee el stock actual y escribe max(0, actual - pedido).
func (p *Pipeline) decrement(ctx context.Context, line entity.TransactionLine) error {
	product, err := p.catalog.GetByID(ctx, line.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}
	newQty := product.Quantity - line.Quantity
	if newQty < 0 {
		newQty = 0
	}
	return p.catalog.UpdateQuantity(ctx, line.ProductID, newQty)
}
