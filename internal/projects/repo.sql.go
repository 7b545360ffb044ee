package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printops-erp/printops/internal/platform/db"
)

// Repository persists project data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	CreateProject(ctx context.Context, project Project) (int64, error)
	InsertPhase(ctx context.Context, phase ProjectPhase) (int64, error)
	InsertTask(ctx context.Context, task Task) (int64, error)
	InsertBrief(ctx context.Context, brief ProjectBrief) error
	UpdateStatus(ctx context.Context, projectID int64, status ProjectStatus) error
	DeleteTasks(ctx context.Context, projectID int64) error
	DeletePhases(ctx context.Context, projectID int64) error
	DeleteBrief(ctx context.Context, projectID int64) error
	DeleteProject(ctx context.Context, projectID int64) error
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

const projectColumns = `id, code, name, client_id, quote_id, status, service_type, budget_revenue, budget_cost, expected_margin_pct, created_by, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.ClientID, &p.QuoteID, &p.Status, &p.ServiceType, &p.BudgetRevenue, &p.BudgetCost, &p.ExpectedMarginPct, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) GetProject(ctx context.Context, id int64) (Project, []ProjectPhase, []Task, error) {
	project, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, nil, nil, ErrNotFound
		}
		return Project{}, nil, nil, err
	}
	phases, err := r.queryPhases(ctx, id)
	if err != nil {
		return Project{}, nil, nil, err
	}
	tasks, err := r.queryTasks(ctx, id)
	if err != nil {
		return Project{}, nil, nil, err
	}
	return project, phases, tasks, nil
}

func (r *Repository) GetBrief(ctx context.Context, projectID int64) (ProjectBrief, error) {
	var brief ProjectBrief
	err := r.pool.QueryRow(ctx, `SELECT id, project_id, specs, created_at FROM project_briefs WHERE project_id=$1`, projectID).
		Scan(&brief.ID, &brief.ProjectID, &brief.Specs, &brief.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProjectBrief{}, ErrNotFound
		}
		return ProjectBrief{}, err
	}
	return brief, nil
}

func (r *Repository) FindByQuoteID(ctx context.Context, quoteID int64) (Project, error) {
	project, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE quote_id=$1`, quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return project, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Project, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects
WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR client_id = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`, string(filter.Status), filter.ClientID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

func (r *Repository) queryPhases(ctx context.Context, projectID int64) ([]ProjectPhase, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, project_id, name, phase_order, status, owner_user_id, planned_hours, actual_hours FROM project_phases WHERE project_id=$1 ORDER BY phase_order ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	phases := []ProjectPhase{}
	for rows.Next() {
		var phase ProjectPhase
		if err := rows.Scan(&phase.ID, &phase.ProjectID, &phase.Name, &phase.PhaseOrder, &phase.Status, &phase.OwnerUserID, &phase.PlannedHours, &phase.ActualHours); err != nil {
			return nil, err
		}
		phases = append(phases, phase)
	}
	return phases, rows.Err()
}

func (r *Repository) queryTasks(ctx context.Context, projectID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, project_id, phase_id, title, status, assignee_user_id, estimated_hours FROM tasks WHERE project_id=$1 ORDER BY id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tasks := []Task{}
	for rows.Next() {
		var task Task
		if err := rows.Scan(&task.ID, &task.ProjectID, &task.PhaseID, &task.Title, &task.Status, &task.AssigneeUserID, &task.EstimatedHours); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CreateProject inserts the header. The unique index on projects.quote_id
// turns a concurrent double conversion into ErrAlreadyConverted.
func (r *txRepository) CreateProject(ctx context.Context, project Project) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO projects (code, name, client_id, quote_id, status, service_type, budget_revenue, budget_cost, expected_margin_pct, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW()) RETURNING id`,
		project.Code, project.Name, project.ClientID, project.QuoteID, string(project.Status), project.ServiceType, project.BudgetRevenue, project.BudgetCost, project.ExpectedMarginPct, project.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAlreadyConverted
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertPhase(ctx context.Context, phase ProjectPhase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO project_phases (project_id, name, phase_order, status, owner_user_id, planned_hours, actual_hours)
VALUES ($1,$2,$3,$4,$5,$6,0) RETURNING id`,
		phase.ProjectID, string(phase.Name), phase.PhaseOrder, string(phase.Status), phase.OwnerUserID, phase.PlannedHours).Scan(&id)
	return id, err
}

func (r *txRepository) InsertTask(ctx context.Context, task Task) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO tasks (project_id, phase_id, title, status, assignee_user_id, estimated_hours)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		task.ProjectID, task.PhaseID, task.Title, string(task.Status), task.AssigneeUserID, task.EstimatedHours).Scan(&id)
	return id, err
}

func (r *txRepository) InsertBrief(ctx context.Context, brief ProjectBrief) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO project_briefs (project_id, specs, created_at) VALUES ($1,$2,NOW())`, brief.ProjectID, brief.Specs)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, projectID int64, status ProjectStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE projects SET status=$2, updated_at=NOW() WHERE id=$1`, projectID, string(status))
	return err
}

func (r *txRepository) DeleteTasks(ctx context.Context, projectID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM tasks WHERE project_id=$1`, projectID)
	return err
}

func (r *txRepository) DeletePhases(ctx context.Context, projectID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM project_phases WHERE project_id=$1`, projectID)
	return err
}

func (r *txRepository) DeleteBrief(ctx context.Context, projectID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM project_briefs WHERE project_id=$1`, projectID)
	return err
}

func (r *txRepository) DeleteProject(ctx context.Context, projectID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	return err
}
