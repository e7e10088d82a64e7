package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-terminal/internal/domain/entity"
	"github.com/jhoicas/pos-terminal/internal/domain/repository"
)

var _ repository.CatalogStore = (*CatalogStore)(nil)

// CatalogStore implementación del puerto CatalogStore sobre PostgreSQL.
type CatalogStore struct {
	q Querier
}

// NewCatalogStore construye el adaptador de catálogo. Pasar pool o tx (Querier).
func NewCatalogStore(q Querier) *CatalogStore {
	return &CatalogStore{q: q}
}

const productColumns = `id, name, category, price, cost_price, quantity, low_stock_threshold, barcode, image_url, created_at, updated_at`

// List devuelve el catálogo completo ordenado por id (orden de iteración estable
// para el desempate de códigos de barras duplicados).
func (s *CatalogStore) List(ctx context.Context) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetByID obtiene el registro autoritativo de un producto; (nil, nil) si no existe.
func (s *CatalogStore) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// UpdateQuantity escribe el stock absoluto del producto. No es read-modify-write:
// el pipeline calcula el nuevo valor y aquí solo se persiste.
func (s *CatalogStore) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	query := `UPDATE products SET quantity = $2, updated_at = now() WHERE id = $1`
	tag, err := s.q.Exec(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update quantity %s: producto no existe", id)
	}
	return nil
}

// Update actualiza los campos editables del producto.
func (s *CatalogStore) Update(ctx context.Context, p *entity.Product) error {
	query := `
		UPDATE products
		SET name = $2, category = $3, price = $4, cost_price = $5, quantity = $6,
		    low_stock_threshold = $7, barcode = $8, image_url = $9, updated_at = now()
		WHERE id = $1`
	_, err := s.q.Exec(ctx, query,
		p.ID, p.Name, p.Category, p.Price, p.CostPrice, p.Quantity,
		p.LowStockThreshold, p.Barcode, p.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Price, &p.CostPrice, &p.Quantity,
		&p.LowStockThreshold, &p.Barcode, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
