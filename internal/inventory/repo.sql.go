package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printops-erp/printops/internal/platform/db"
)

// Repository persists the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	SumMovements(ctx context.Context, materialID int64) (float64, error)
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// SumMovements derives the current balance from the full ledger history.
func (r *Repository) SumMovements(ctx context.Context, materialID int64) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(qty_in - qty_out), 0) FROM inventory_transactions WHERE material_id=$1`, materialID).Scan(&balance)
	return balance, err
}

func (r *Repository) ListLedger(ctx context.Context, filter LedgerFilter) ([]Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, material_id, qty_in, qty_out, unit_cost, stock_after, reference_type, COALESCE(reference_id::text, ''), note, created_by, created_at
FROM inventory_transactions
WHERE material_id=$1 AND created_at BETWEEN COALESCE($2, '-infinity') AND COALESCE($3, 'infinity')
ORDER BY created_at ASC, id ASC
LIMIT $4`, filter.MaterialID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Transaction{}
	for rows.Next() {
		var entry Transaction
		if err := rows.Scan(&entry.ID, &entry.MaterialID, &entry.QtyIn, &entry.QtyOut, &entry.UnitCost, &entry.StockAfter, &entry.ReferenceType, &entry.ReferenceID, &entry.Note, &entry.CreatedBy, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *txRepository) SumMovements(ctx context.Context, materialID int64) (float64, error) {
	var balance float64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(qty_in - qty_out), 0) FROM inventory_transactions WHERE material_id=$1`, materialID).Scan(&balance)
	return balance, err
}

func (r *txRepository) InsertTransaction(ctx context.Context, tx Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions (material_id, qty_in, qty_out, unit_cost, stock_after, reference_type, reference_id, note, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id`, tx.MaterialID, tx.QtyIn, tx.QtyOut, tx.UnitCost, tx.StockAfter, string(tx.ReferenceType), nullUUID(tx.ReferenceID), tx.Note, nullInt(tx.CreatedBy)).Scan(&id)
	return id, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullUUID(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
