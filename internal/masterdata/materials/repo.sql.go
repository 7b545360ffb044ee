package materials

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository provides PostgreSQL backed persistence.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const materialColumns = `id, code, name, unit, unit_cost, min_stock, is_active, created_at, updated_at`

func scanMaterial(row pgx.Row) (Material, error) {
	var m Material
	err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Unit, &m.UnitCost, &m.MinStock, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *PgRepository) List(ctx context.Context, search string, limit, offset int) ([]Material, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+materialColumns+` FROM materials
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%')
ORDER BY name ASC LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Material{}
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, material)
	}
	return out, rows.Err()
}

func (r *PgRepository) Get(ctx context.Context, id int64) (Material, error) {
	material, err := scanMaterial(r.pool.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Material{}, ErrNotFound
		}
		return Material{}, err
	}
	return material, nil
}

func (r *PgRepository) Create(ctx context.Context, material Material) (Material, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO materials (code, name, unit, unit_cost, min_stock, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		material.Code, material.Name, material.Unit, material.UnitCost, material.MinStock, material.IsActive).
		Scan(&material.ID, &material.CreatedAt, &material.UpdatedAt)
	return material, err
}

func (r *PgRepository) Update(ctx context.Context, material Material) error {
	_, err := r.pool.Exec(ctx, `UPDATE materials SET code=$2, name=$3, unit=$4, unit_cost=$5, min_stock=$6, is_active=$7, updated_at=NOW() WHERE id=$1`,
		material.ID, material.Code, material.Name, material.Unit, material.UnitCost, material.MinStock, material.IsActive)
	return err
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id=$1`, id)
	return err
}

// ListBelowMinStock joins the ledger to surface materials running low.
func (r *PgRepository) ListBelowMinStock(ctx context.Context) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+materialColumns+` FROM materials m
WHERE m.is_active AND m.min_stock > 0 AND COALESCE((
    SELECT SUM(t.qty_in - t.qty_out) FROM inventory_transactions t WHERE t.material_id = m.id
), 0) < m.min_stock
ORDER BY m.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Material{}
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, material)
	}
	return out, rows.Err()
}
