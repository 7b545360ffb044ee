package purchasing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printops-erp/printops/internal/platform/db"
)

// Repository persists purchasing data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, itemID int64) error
	DeleteItems(ctx context.Context, poID int64) error
	DeletePO(ctx context.Context, poID int64) error
	GetPOForUpdate(ctx context.Context, poID int64) (PurchaseOrder, []Item, error)
	UpdateTotals(ctx context.Context, poID int64, subtotal, tax, total int64) error
	UpdateReceivedQty(ctx context.Context, itemID int64, receivedQty float64) error
	UpdateStatus(ctx context.Context, poID int64, status POStatus) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const poColumns = `id, po_number, supplier_id, status, subtotal, discount, tax, shipping, total, currency, note, created_by, created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.PONumber, &po.SupplierID, &po.Status, &po.Subtotal, &po.Discount, &po.Tax, &po.Shipping, &po.Total, &po.Currency, &po.Note, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	return po, err
}

func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, []Item, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, ErrNotFound
		}
		return PurchaseOrder{}, nil, err
	}
	items, err := queryItems(ctx, r.pool, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, items, nil
}

func (r *Repository) GetItem(ctx context.Context, itemID int64) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `SELECT id, po_id, material_id, line_no, qty, received_qty, unit_price, line_discount, line_tax, line_total FROM purchase_order_items WHERE id=$1`, itemID).
		Scan(&item.ID, &item.POID, &item.MaterialID, &item.LineNo, &item.Qty, &item.ReceivedQty, &item.UnitPrice, &item.LineDiscount, &item.LineTax, &item.LineTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+` FROM purchase_orders
WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR supplier_id = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`, string(filter.Status), filter.SupplierID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []PurchaseOrder{}
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q queryer, poID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, po_id, material_id, line_no, qty, received_qty, unit_price, line_discount, line_tax, line_total FROM purchase_order_items WHERE po_id=$1 ORDER BY line_no ASC, id ASC`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.POID, &item.MaterialID, &item.LineNo, &item.Qty, &item.ReceivedQty, &item.UnitPrice, &item.LineDiscount, &item.LineTax, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_orders (po_number, supplier_id, status, subtotal, discount, tax, shipping, total, currency, note, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW()) RETURNING id`,
		po.PONumber, po.SupplierID, string(po.Status), po.Subtotal, po.Discount, po.Tax, po.Shipping, po.Total, po.Currency, po.Note, po.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_order_items (po_id, material_id, line_no, qty, received_qty, unit_price, line_discount, line_tax, line_total)
VALUES ($1,$2,$3,$4,0,$5,$6,$7,$8) RETURNING id`,
		item.POID, item.MaterialID, item.LineNo, item.Qty, item.UnitPrice, item.LineDiscount, item.LineTax, item.LineTotal).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateItem(ctx context.Context, item Item) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_order_items SET material_id=$2, qty=$3, unit_price=$4, line_discount=$5, line_tax=$6, line_total=$7 WHERE id=$1`,
		item.ID, item.MaterialID, item.Qty, item.UnitPrice, item.LineDiscount, item.LineTax, item.LineTotal)
	return err
}

func (r *txRepository) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE id=$1`, itemID)
	return err
}

func (r *txRepository) DeleteItems(ctx context.Context, poID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE po_id=$1`, poID)
	return err
}

func (r *txRepository) DeletePO(ctx context.Context, poID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id=$1`, poID)
	return err
}

func (r *txRepository) GetPOForUpdate(ctx context.Context, poID int64) (PurchaseOrder, []Item, error) {
	po, err := scanPO(r.tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1 FOR UPDATE`, poID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, ErrNotFound
		}
		return PurchaseOrder{}, nil, err
	}
	items, err := queryItems(ctx, r.tx, poID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, items, nil
}

func (r *txRepository) UpdateTotals(ctx context.Context, poID int64, subtotal, tax, total int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET subtotal=$2, tax=$3, total=$4, updated_at=NOW() WHERE id=$1`, poID, subtotal, tax, total)
	return err
}

func (r *txRepository) UpdateReceivedQty(ctx context.Context, itemID int64, receivedQty float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_order_items SET received_qty=$2 WHERE id=$1`, itemID, receivedQty)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, poID int64, status POStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=NOW() WHERE id=$1`, poID, string(status))
	return err
}
