package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-terminal/internal/domain"
	"github.com/jhoicas/pos-terminal/internal/domain/entity"
	"github.com/jhoicas/pos-terminal/internal/domain/repository"
)

var _ repository.TransactionStore = (*TransactionStore)(nil)

// TransactionStore implementación del puerto TransactionStore sobre PostgreSQL.
// Cabecera y líneas se guardan en una sola escritura (CTE), de modo que el paso
// de persistencia del pipeline sea todo-o-nada.
type TransactionStore struct {
	q Querier
}

// NewTransactionStore construye el adaptador de ventas. Pasar pool o tx (Querier).
func NewTransactionStore(q Querier) *TransactionStore {
	return &TransactionStore{q: q}
}

// Create persiste cabecera y líneas como una única sentencia.
func (s *TransactionStore) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		WITH header AS (
			INSERT INTO transactions (id, created_at, subtotal, tax, total, payment_method, received_amount, change, reference_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		)
		INSERT INTO transaction_lines (transaction_id, product_id, name, category, price, quantity, subtotal)
		SELECT h.id, l.product_id, l.name, l.category, l.price, l.quantity, l.subtotal
		FROM header h
		CROSS JOIN unnest($10::text[], $11::text[], $12::text[], $13::numeric[], $14::int[], $15::numeric[])
			AS l(product_id, name, category, price, quantity, subtotal)`

	n := len(tx.Lines)
	productIDs := make([]string, n)
	names := make([]string, n)
	categories := make([]string, n)
	prices := make([]string, n)
	quantities := make([]int, n)
	subtotals := make([]string, n)
	for i, line := range tx.Lines {
		productIDs[i] = line.ProductID
		names[i] = line.Name
		categories[i] = line.Category
		prices[i] = line.Price.String()
		quantities[i] = line.Quantity
		subtotals[i] = line.Subtotal.String()
	}

	_, err := s.q.Exec(ctx, query,
		tx.ID, tx.CreatedAt, tx.Subtotal, tx.Tax, tx.Total,
		tx.PaymentMethod, tx.ReceivedAmount, tx.Change, tx.ReferenceNumber,
		productIDs, names, categories, prices, quantities, subtotals,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID devuelve la transacción con sus líneas; (nil, nil) si no existe.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	query := `
		SELECT id, created_at, subtotal, tax, total, payment_method, received_amount, change, reference_number
		FROM transactions WHERE id = $1`
	var tx entity.Transaction
	err := s.q.QueryRow(ctx, query, id).Scan(
		&tx.ID, &tx.CreatedAt, &tx.Subtotal, &tx.Tax, &tx.Total,
		&tx.PaymentMethod, &tx.ReceivedAmount, &tx.Change, &tx.ReferenceNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	lines, err := s.linesByTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	tx.Lines = lines
	return &tx, nil
}

// List lista transacciones (sin líneas) de la más reciente a la más antigua.
func (s *TransactionStore) List(ctx context.Context, limit, offset int) ([]*entity.Transaction, error) {
	query := `
		SELECT id, created_at, subtotal, tax, total, payment_method, received_amount, change, reference_number
		FROM transactions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var list []*entity.Transaction
	for rows.Next() {
		var tx entity.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.CreatedAt, &tx.Subtotal, &tx.Tax, &tx.Total,
			&tx.PaymentMethod, &tx.ReceivedAmount, &tx.Change, &tx.ReferenceNumber,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, &tx)
	}
	return list, rows.Err()
}

// Delete elimina una transacción y sus líneas (capacidad administrativa).
func (s *TransactionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TransactionStore) linesByTransaction(ctx context.Context, id string) ([]entity.TransactionLine, error) {
	query := `
		SELECT product_id, name, category, price, quantity, subtotal
		FROM transaction_lines WHERE transaction_id = $1 ORDER BY id`
	rows, err := s.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.TransactionLine
	for rows.Next() {
		var l entity.TransactionLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Category, &l.Price, &l.Quantity, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan transaction line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
