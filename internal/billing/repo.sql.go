package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printops-erp/printops/internal/platform/db"
)

// Repository persists billing data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (Invoice, []Payment, error)
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	DeletePayment(ctx context.Context, paymentID int64) error
	DeletePayments(ctx context.Context, invoiceID int64) error
	DeleteInvoice(ctx context.Context, invoiceID int64) error
	UpdateStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error
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

const invoiceColumns = `id, invoice_number, client_id, COALESCE(project_id, 0), status, total, due_date, issued_at, note, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &inv.ProjectID, &inv.Status, &inv.Total, &inv.DueDate, &inv.IssuedAt, &inv.Note, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, []Payment, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, nil, ErrNotFound
		}
		return Invoice{}, nil, err
	}
	payments, err := queryPayments(ctx, r.pool, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	return inv, payments, nil
}

func (r *Repository) GetPayment(ctx context.Context, paymentID int64) (Payment, error) {
	var payment Payment
	err := r.pool.QueryRow(ctx, `SELECT id, invoice_id, amount, method, paid_at, note, created_at FROM payments WHERE id=$1`, paymentID).
		Scan(&payment.ID, &payment.InvoiceID, &payment.Amount, &payment.Method, &payment.PaidAt, &payment.Note, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	return payment, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR client_id = $2)
ORDER BY issued_at DESC, id DESC
LIMIT $3 OFFSET $4`, string(filter.Status), filter.ClientID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// ListOverdueCandidates returns issued invoices past due with no payments.
func (r *Repository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id FROM invoices i
WHERE i.status = 'issued' AND i.due_date IS NOT NULL AND i.due_date < $1
  AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.invoice_id = i.id)
ORDER BY i.id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryPayments(ctx context.Context, q queryer, invoiceID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_id, amount, method, paid_at, note, created_at FROM payments WHERE invoice_id=$1 ORDER BY paid_at ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := []Payment{}
	for rows.Next() {
		var payment Payment
		if err := rows.Scan(&payment.ID, &payment.InvoiceID, &payment.Amount, &payment.Method, &payment.PaidAt, &payment.Note, &payment.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (r *txRepository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (invoice_number, client_id, project_id, status, total, due_date, issued_at, note, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW()) RETURNING id`,
		inv.InvoiceNumber, inv.ClientID, nullInt(inv.ProjectID), string(inv.Status), inv.Total, inv.DueDate, inv.IssuedAt, inv.Note).Scan(&id)
	return id, err
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (Invoice, []Payment, error) {
	inv, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 FOR UPDATE`, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, nil, ErrNotFound
		}
		return Invoice{}, nil, err
	}
	payments, err := queryPayments(ctx, r.tx, invoiceID)
	if err != nil {
		return Invoice{}, nil, err
	}
	return inv, payments, nil
}

func (r *txRepository) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (invoice_id, amount, method, paid_at, note, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING id`, payment.InvoiceID, payment.Amount, payment.Method, payment.PaidAt, payment.Note).Scan(&id)
	return id, err
}

func (r *txRepository) DeletePayment(ctx context.Context, paymentID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM payments WHERE id=$1`, paymentID)
	return err
}

func (r *txRepository) DeletePayments(ctx context.Context, invoiceID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM payments WHERE invoice_id=$1`, invoiceID)
	return err
}

func (r *txRepository) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM invoices WHERE id=$1`, invoiceID)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET status=$2, updated_at=NOW() WHERE id=$1`, invoiceID, string(status))
	return err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
