package catalog

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/pos-terminal/internal/domain/entity"
	"github.com/jhoicas/pos-terminal/internal/domain/repository"
	"github.com/jhoicas/pos-terminal/pkg/logger"
)

// Cache espejo en memoria del catálogo, refrescado por completo (sin merges
// parciales) desde el Catalog Store. Todo lector debe asumir que la copia
// puede estar desactualizada: la verificación autoritativa de stock se hace
// contra el store, no contra el caché.
//
// Tras cada refresco los productos quedan ordenados por id, así la resolución
// de un código de barras duplicado entre productos es determinista: gana el
// id más bajo.
type Cache struct {
	store       repository.CatalogStore
	minInterval time.Duration
	log         *logger.Logger

	mu          sync.RWMutex
	products    []*entity.Product
	lastRefresh time.Time

	// contadores atómicos (se leen bajo RLock en rutas calientes)
	refreshes uint64
	skipped   uint64
	lookups   uint64
}

// Stats contadores del caché.
type Stats struct {
	Refreshes uint64
	Skipped   uint64 // refrescos omitidos por el límite de frecuencia
	Lookups   uint64
}

// NewCache construye el caché; queda vacío hasta el primer Refresh.
func NewCache(store repository.CatalogStore, minInterval time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		store:       store,
		minInterval: minInterval,
		log:         log.Component("catalog-cache"),
	}
}

// Refresh recarga el catálogo completo. Los refrescos se limitan a uno por
// minInterval para no generar tormentas ante escaneos o mutaciones rápidas;
// una llamada dentro del intervalo es un no-op silencioso.
func (c *Cache) Refresh(ctx context.Context) error {
	return c.refresh(ctx, false)
}

// ForceRefresh ignora el límite de frecuencia. Lo usa el pipeline tras un
// cobro para que las siguientes resoluciones vean el stock recién descontado.
func (c *Cache) ForceRefresh(ctx context.Context) error {
	return c.refresh(ctx, true)
}

func (c *Cache) refresh(ctx context.Context, force bool) error {
	c.mu.Lock()
	if !force && !c.lastRefresh.IsZero() && time.Since(c.lastRefresh) < c.minInterval {
		atomic.AddUint64(&c.skipped, 1)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	products, err := c.store.List(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("refresco de catálogo falló")
		return err
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })

	c.mu.Lock()
	c.products = products
	c.lastRefresh = time.Now()
	c.mu.Unlock()
	atomic.AddUint64(&c.refreshes, 1)

	c.log.Debug().Int("products", len(products)).Msg("catálogo refrescado")
	return nil
}

// Snapshot devuelve la lista actual (copias de punteros; no mutar los productos).
func (c *Cache) Snapshot() []*entity.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*entity.Product, len(c.products))
	copy(out, c.products)
	return out
}

// ResolveToken busca el primer producto cuyo barcode coincide con el token y,
// si ninguno coincide, cae a igualdad de string contra el id. Primer match gana;
// como la lista está ordenada por id, el desempate entre códigos duplicados es
// el id de producto más bajo.
func (c *Cache) ResolveToken(token string) *entity.Product {
	atomic.AddUint64(&c.lookups, 1)
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.products {
		if p.Barcode != "" && p.Barcode == token {
			return p
		}
	}
	for _, p := range c.products {
		if p.ID == token {
			return p
		}
	}
	return nil
}

// BarcodeRegistered indica si el token ya está registrado como barcode de algún producto.
func (c *Cache) BarcodeRegistered(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.Barcode != "" && p.Barcode == token {
			return true
		}
	}
	return false
}

// Stats devuelve una copia de los contadores.
func (c *Cache) Stats() Stats {
	return Stats{
		Refreshes: atomic.LoadUint64(&c.refreshes),
		Skipped:   atomic.LoadUint64(&c.skipped),
		Lookups:   atomic.LoadUint64(&c.lookups),
	}
}
