package clients

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

const clientColumns = `id, name, rut, email, phone, address, is_active, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.RUT, &c.Email, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PgRepository) List(ctx context.Context, search string, limit, offset int) ([]Client, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR rut ILIKE '%' || $1 || '%')
ORDER BY name ASC LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Client{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, client)
	}
	return out, rows.Err()
}

func (r *PgRepository) Get(ctx context.Context, id int64) (Client, error) {
	client, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}
	return client, nil
}

func (r *PgRepository) Create(ctx context.Context, client Client) (Client, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO clients (name, rut, email, phone, address, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		client.Name, client.RUT, client.Email, client.Phone, client.Address, client.IsActive).
		Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	return client, err
}

func (r *PgRepository) Update(ctx context.Context, client Client) error {
	_, err := r.pool.Exec(ctx, `UPDATE clients SET name=$2, rut=$3, email=$4, phone=$5, address=$6, is_active=$7, updated_at=NOW() WHERE id=$1`,
		client.ID, client.Name, client.RUT, client.Email, client.Phone, client.Address, client.IsActive)
	return err
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	return err
}
