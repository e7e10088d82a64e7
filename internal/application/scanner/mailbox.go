package scanner

import (
	"sync"
	"time"

	"github.com/jhoicas/pos-terminal/internal/domain/entity"
)

// Mailbox es el canal de traspaso entre pantallas: un slot único con contrato
// de consumo a-lo-sumo-una-vez. La pantalla de venta consume el producto
// resuelto y el slot se limpia, de modo que un refresh de página no vuelve a
// disparar la acción.
//
// El consumo es idempotente por id de producto dentro de una ventana de gracia:
// la entrega duplicada (re-entrada a la página) devuelve nil en vez de repetir
// el traspaso.
type Mailbox struct {
	grace time.Duration

	mu             sync.Mutex
	slot           *entity.Product
	lastConsumedID string
	lastConsumedAt time.Time
}

// NewMailbox construye el buzón con la ventana de gracia configurada.
func NewMailbox(grace time.Duration) *Mailbox {
	return &Mailbox{grace: grace}
}

// Deposit coloca el producto resuelto en el slot, reemplazando cualquier
// payload anterior no consumido.
func (m *Mailbox) Deposit(p *entity.Product) {
	m.mu.Lock()
	m.slot = p
	m.mu.Unlock()
}

// Consume devuelve el payload pendiente y limpia el slot. Devuelve nil si el
// slot está vacío o si el mismo producto ya fue consumido dentro de la ventana
// de gracia (entrega duplicada).
func (m *Mailbox) Consume() *entity.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.slot
	if p == nil {
		return nil
	}
	m.slot = nil

	if p.ID == m.lastConsumedID && time.Since(m.lastConsumedAt) < m.grace {
		return nil
	}
	m.lastConsumedID = p.ID
	m.lastConsumedAt = time.Now()
	return p
}
