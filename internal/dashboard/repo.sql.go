package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository provides PostgreSQL backed aggregate queries.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) QuotePipeline(ctx context.Context) ([]PipelineEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(total),0) FROM quotes GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PipelineEntry{}
	for rows.Next() {
		var entry PipelineEntry
		if err := rows.Scan(&entry.Status, &entry.Count, &entry.Total); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *PgRepository) OverdueInvoices(ctx context.Context, asOf time.Time) (OverdueSummary, error) {
	var summary OverdueSummary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(i.total - COALESCE(p.collected,0)),0)
FROM invoices i
LEFT JOIN (SELECT invoice_id, SUM(amount) AS collected FROM payments GROUP BY invoice_id) p ON p.invoice_id = i.id
WHERE i.status = 'overdue'`).Scan(&summary.Count, &summary.Amount)
	return summary, err
}

func (r *PgRepository) LowStockMaterials(ctx context.Context) ([]LowStockEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT m.id, m.name, COALESCE(b.balance,0), m.min_stock
FROM materials m
LEFT JOIN (SELECT material_id, SUM(qty_in - qty_out) AS balance FROM inventory_transactions GROUP BY material_id) b ON b.material_id = m.id
WHERE m.is_active AND m.min_stock > 0 AND COALESCE(b.balance,0) < m.min_stock
ORDER BY m.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LowStockEntry{}
	for rows.Next() {
		var entry LowStockEntry
		if err := rows.Scan(&entry.MaterialID, &entry.Name, &entry.Balance, &entry.MinStock); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *PgRepository) CountActiveProjects(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects WHERE status IN ('planning','in_progress')`).Scan(&count)
	return count, err
}
