package quotes

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printops-erp/printops/internal/platform/db"
)

// Repository persists quote data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	CreateQuote(ctx context.Context, quote Quote) (int64, error)
	InsertItem(ctx context.Context, item QuoteItem) (int64, error)
	UpdateItem(ctx context.Context, item QuoteItem) error
	DeleteItem(ctx context.Context, itemID int64) error
	DeleteItems(ctx context.Context, quoteID int64) error
	DeleteQuote(ctx context.Context, quoteID int64) error
	GetQuoteForUpdate(ctx context.Context, quoteID int64) (Quote, []QuoteItem, error)
	UpdateTotals(ctx context.Context, quoteID int64, subtotal, tax, total int64) error
	UpdateDiscount(ctx context.Context, quoteID int64, discount int64) error
	UpdateStatus(ctx context.Context, quoteID int64, status QuoteStatus) error
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

const quoteColumns = `id, quote_number, client_id, status, currency, subtotal, discount, tax, total, note, created_by, created_at, updated_at`

const itemColumns = `id, quote_id, line_no, service_category, description, qty, unit_price, line_discount, line_tax, line_total, material_est_cost, hours_estimated, specs, created_at`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.QuoteNumber, &q.ClientID, &q.Status, &q.Currency, &q.Subtotal, &q.Discount, &q.Tax, &q.Total, &q.Note, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func scanItem(row pgx.Row) (QuoteItem, error) {
	var item QuoteItem
	err := row.Scan(&item.ID, &item.QuoteID, &item.LineNo, &item.ServiceCategory, &item.Description, &item.Qty, &item.UnitPrice, &item.LineDiscount, &item.LineTax, &item.LineTotal, &item.MaterialEstCost, &item.HoursEstimated, &item.Specs, &item.CreatedAt)
	return item, err
}

func (r *Repository) GetQuote(ctx context.Context, id int64) (Quote, []QuoteItem, error) {
	quote, err := scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, nil, ErrNotFound
		}
		return Quote{}, nil, err
	}
	items, err := queryItems(ctx, r.pool, id)
	if err != nil {
		return Quote{}, nil, err
	}
	return quote, items, nil
}

func (r *Repository) GetItem(ctx context.Context, itemID int64) (QuoteItem, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM quote_items WHERE id=$1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuoteItem{}, ErrNotFound
		}
		return QuoteItem{}, err
	}
	return item, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Quote, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+quoteColumns+` FROM quotes
WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR client_id = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`, string(filter.Status), filter.ClientID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quote{}
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, quote)
	}
	return out, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q queryer, quoteID int64) ([]QuoteItem, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM quote_items WHERE quote_id=$1 ORDER BY line_no ASC, id ASC`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []QuoteItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) CreateQuote(ctx context.Context, quote Quote) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO quotes (quote_number, client_id, status, currency, subtotal, discount, tax, total, note, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW()) RETURNING id`,
		quote.QuoteNumber, quote.ClientID, string(quote.Status), quote.Currency, quote.Subtotal, quote.Discount, quote.Tax, quote.Total, quote.Note, quote.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) InsertItem(ctx context.Context, item QuoteItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO quote_items (quote_id, line_no, service_category, description, qty, unit_price, line_discount, line_tax, line_total, material_est_cost, hours_estimated, specs, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW()) RETURNING id`,
		item.QuoteID, item.LineNo, item.ServiceCategory, item.Description, item.Qty, item.UnitPrice, item.LineDiscount, item.LineTax, item.LineTotal, item.MaterialEstCost, item.HoursEstimated, item.Specs).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateItem(ctx context.Context, item QuoteItem) error {
	_, err := r.tx.Exec(ctx, `UPDATE quote_items SET service_category=$2, description=$3, qty=$4, unit_price=$5, line_discount=$6, line_tax=$7, line_total=$8, material_est_cost=$9, hours_estimated=$10, specs=$11 WHERE id=$1`,
		item.ID, item.ServiceCategory, item.Description, item.Qty, item.UnitPrice, item.LineDiscount, item.LineTax, item.LineTotal, item.MaterialEstCost, item.HoursEstimated, item.Specs)
	return err
}

func (r *txRepository) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM quote_items WHERE id=$1`, itemID)
	return err
}

func (r *txRepository) DeleteItems(ctx context.Context, quoteID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id=$1`, quoteID)
	return err
}

func (r *txRepository) DeleteQuote(ctx context.Context, quoteID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM quotes WHERE id=$1`, quoteID)
	return err
}

func (r *txRepository) GetQuoteForUpdate(ctx context.Context, quoteID int64) (Quote, []QuoteItem, error) {
	quote, err := scanQuote(r.tx.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1 FOR UPDATE`, quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, nil, ErrNotFound
		}
		return Quote{}, nil, err
	}
	items, err := queryItems(ctx, r.tx, quoteID)
	if err != nil {
		return Quote{}, nil, err
	}
	return quote, items, nil
}

func (r *txRepository) UpdateTotals(ctx context.Context, quoteID int64, subtotal, tax, total int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE quotes SET subtotal=$2, tax=$3, total=$4, updated_at=NOW() WHERE id=$1`, quoteID, subtotal, tax, total)
	return err
}

func (r *txRepository) UpdateDiscount(ctx context.Context, quoteID int64, discount int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE quotes SET discount=$2, updated_at=NOW() WHERE id=$1`, quoteID, discount)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, quoteID int64, status QuoteStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE quotes SET status=$2, updated_at=NOW() WHERE id=$1`, quoteID, string(status))
	return err
}
