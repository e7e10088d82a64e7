package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"

	"github.com/jhoicas/pos-terminal/internal/application/catalog"
	"github.com/jhoicas/pos-terminal/internal/domain"
	"github.com/jhoicas/pos-terminal/internal/domain/entity"
	"github.com/jhoicas/pos-terminal/pkg/logger"
)

// Identidades de pantalla conocidas por la tabla de política.
const (
	ScreenSale    = "sale"
	ScreenCatalog = "catalog"
)

// TopicNotification tópico del bus donde el router y el pipeline publican
// avisos para el operador.
const TopicNotification = "pos:notification"

// Notification aviso legible para el operador.
type Notification struct {
	Kind    string // unknown_barcode, out_of_stock, duplicate_barcode, insufficient_stock, sale_settled, inventory_apply_failure
	Message string
	Token   string
	Product string // id del producto, si aplica
}

// Resultados de enrutar un token.
const (
	OutcomeAdded      = "added_to_cart"
	OutcomeUnknown    = "unknown_barcode"
	OutcomeOutOfStock = "out_of_stock"
	OutcomeDuplicate  = "duplicate_barcode"
	OutcomeCreateForm = "create_form"
	OutcomeHandoff    = "handoff"
	OutcomeDiscarded  = "discarded" // duplicado dentro de la ventana o resolución en vuelo
	OutcomeRejected   = "rejected"  // la mutación del carrito fue rechazada (stock insuficiente)
)

// Action es el resultado enrutado de un token comprometido.
type Action struct {
	Outcome string          `json:"outcome"`
	Token   string          `json:"token"`
	Product *entity.Product `json:"product,omitempty"`
}

// CartAdder es lo único que el router necesita del carrito.
type CartAdder interface {
	Add(ctx context.Context, productID string) error
}

// DedupPolicy tabla de ventanas de deduplicación por pantalla.
type DedupPolicy struct {
	Windows map[string]time.Duration
	Default time.Duration
}

// Window devuelve la ventana para una pantalla (o la ventana por defecto).
func (p DedupPolicy) Window(screen string) time.Duration {
	if w, ok := p.Windows[screen]; ok {
		return w
	}
	return p.Default
}

// Router resuelve tokens contra el caché de catálogo y despacha la acción que
// corresponde a la pantalla activa. Un mismo token dentro de la ventana de
// deduplicación, o cualquier token mientras una resolución sigue en vuelo,
// se descarta en silencio (el hardware del escáner puede disparar doble).
type Router struct {
	cache   *catalog.Cache
	cart    CartAdder
	mailbox *Mailbox
	bus     EventBus.Bus
	policy  DedupPolicy
	log     *logger.Logger

	mu        sync.Mutex
	lastToken string
	lastAt    time.Time
	inFlight  bool
}

// NewRouter construye el router.
func NewRouter(cache *catalog.Cache, cart CartAdder, mailbox *Mailbox, bus EventBus.Bus, policy DedupPolicy, log *logger.Logger) *Router {
	return &Router{
		cache:   cache,
		cart:    cart,
		mailbox: mailbox,
		bus:     bus,
		policy:  policy,
		log:     log.Component("scan-router"),
	}
}

// Route procesa un token comprometido en la pantalla indicada.
func (r *Router) Route(ctx context.Context, token, screen string) Action {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return Action{Outcome: OutcomeDiscarded, Token: token}
	}
	if token == r.lastToken && time.Since(r.lastAt) < r.policy.Window(screen) {
		r.mu.Unlock()
		return Action{Outcome: OutcomeDiscarded, Token: token}
	}
	r.lastToken = token
	r.lastAt = time.Now()
	r.inFlight = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	product := r.cache.ResolveToken(token)
	if product == nil {
		r.notify(Notification{Kind: OutcomeUnknown, Message: "código de barras desconocido: " + token, Token: token})
		return Action{Outcome: OutcomeUnknown, Token: token}
	}

	if product.Quantity <= 0 {
		r.notify(Notification{Kind: OutcomeOutOfStock, Message: product.Name + " sin stock", Token: token, Product: product.ID})
		return Action{Outcome: OutcomeOutOfStock, Token: token, Product: product}
	}

	switch screen {
	case ScreenSale:
		return r.addToCart(ctx, token, product)
	case ScreenCatalog:
		if r.cache.BarcodeRegistered(token) {
			r.notify(Notification{Kind: OutcomeDuplicate, Message: "el código ya está registrado en " + product.Name, Token: token, Product: product.ID})
			return Action{Outcome: OutcomeDuplicate, Token: token, Product: product}
		}
		// Token libre: pre-llenar el formulario de creación de producto.
		return Action{Outcome: OutcomeCreateForm, Token: token}
	default:
		// Traspaso de una sola entrega hacia la pantalla de venta.
		r.mailbox.Deposit(product)
		return Action{Outcome: OutcomeHandoff, Token: token, Product: product}
	}
}

func (r *Router) addToCart(ctx context.Context, token string, product *entity.Product) Action {
	err := r.cart.Add(ctx, product.ID)
	if err == nil {
		return Action{Outcome: OutcomeAdded, Token: token, Product: product}
	}
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		r.notify(Notification{Kind: "insufficient_stock", Message: "stock insuficiente para " + product.Name, Token: token, Product: product.ID})
	case errors.Is(err, domain.ErrOutOfStock):
		r.notify(Notification{Kind: OutcomeOutOfStock, Message: product.Name + " sin stock", Token: token, Product: product.ID})
	default:
		r.log.Error().Err(err).Str("product", product.ID).Msg("agregar al carrito falló")
	}
	return Action{Outcome: OutcomeRejected, Token: token, Product: product}
}

func (r *Router) notify(n Notification) {
	r.bus.Publish(TopicNotification, n)
}
