package scanner

import (
	"context"
	"sync"
	"time"
)

// Timing agrupa los tiempos y umbrales del decodificador.
type Timing struct {
	Idle        time.Duration // debounce del decodificador de página
	IdleModal   time.Duration // debounce de la variante modal (campo del formulario de producto)
	MinLen      int           // longitud mínima de token entre páginas
	MinLenModal int           // longitud mínima en el formulario de creación de producto
}

// Pages mantiene un decodificador lógicamente activo por página y encamina
// cada token comprometido al router con la identidad de pantalla de esa página.
// El estado de escaneo deja de ser global mutable: cada página posee su buffer,
// su timer y su contador de suspensión.
type Pages struct {
	router *Router
	timing Timing

	mu       sync.Mutex
	decoders map[string]*Decoder
}

// NewPages construye el registro de páginas.
func NewPages(router *Router, timing Timing) *Pages {
	return &Pages{
		router:   router,
		timing:   timing,
		decoders: make(map[string]*Decoder),
	}
}

// Decoder devuelve el decodificador de la página, creándolo en el primer uso.
// El formulario de creación de producto usa la variante modal: debounce más
// corto y umbral de longitud más alto.
func (ps *Pages) Decoder(page string) *Decoder {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if d, ok := ps.decoders[page]; ok {
		return d
	}

	idle, minLen := ps.timing.Idle, ps.timing.MinLen
	if page == PageProductForm {
		idle, minLen = ps.timing.IdleModal, ps.timing.MinLenModal
	}
	screen := screenFor(page)
	d := NewDecoder(idle, minLen, func(token string) {
		ps.router.Route(context.Background(), token, screen)
	})
	ps.decoders[page] = d
	return d
}

// PageProductForm página del formulario de creación de producto (variante modal).
const PageProductForm = "product-form"

// screenFor traduce una página a su identidad de pantalla para el router.
// El formulario de producto vive dentro de la pantalla de catálogo.
func screenFor(page string) string {
	if page == PageProductForm {
		return ScreenCatalog
	}
	return page
}
