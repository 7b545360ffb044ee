package projects

import (
	"encoding/json"
	"errors"
	"time"
)

// ProjectStatus enumerates the production lifecycle of a project.
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusDelivered  ProjectStatus = "delivered"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusOnHold, ProjectStatusDelivered:
		return true
	}
	return false
}

// PhaseStatus enumerates phase progress.
type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "pending"
	PhaseStatusInProgress PhaseStatus = "in_progress"
	PhaseStatusDone       PhaseStatus = "done"
)

// TaskStatus enumerates task progress.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Phase names the five fixed production stages. Every project created by
// quote conversion carries all five, in this order.
type Phase string

const (
	PhaseBrief      Phase = "Brief"
	PhaseDiseno     Phase = "Diseño"
	PhasePreprensa  Phase = "Preprensa"
	PhaseProduccion Phase = "Producción"
	PhaseEntrega    Phase = "Entrega"
)

// PhaseTemplate fixes the skeleton expanded during conversion: order,
// planned hours and whether the phase is owned by the production role.
type PhaseTemplate struct {
	Name         Phase
	PlannedHours float64
	Production   bool
}

// PhaseTemplates is the fixed expansion order.
var PhaseTemplates = []PhaseTemplate{
	{Name: PhaseBrief, PlannedHours: 2},
	{Name: PhaseDiseno, PlannedHours: 8},
	{Name: PhasePreprensa, PlannedHours: 4},
	{Name: PhaseProduccion, PlannedHours: 16, Production: true},
	{Name: PhaseEntrega, PlannedHours: 2, Production: true},
}

// Project is the production-side counterpart of a won quote. Budget fields
// are derived once at conversion time and not recomputed afterwards.
type Project struct {
	ID                int64         `json:"id"`
	Code              string        `json:"code"`
	Name              string        `json:"name"`
	ClientID          int64         `json:"client_id"`
	QuoteID           *int64        `json:"quote_id,omitempty"`
	Status            ProjectStatus `json:"status"`
	ServiceType       string        `json:"service_type,omitempty"`
	BudgetRevenue     int64         `json:"budget_revenue"`
	BudgetCost        int64         `json:"budget_cost"`
	ExpectedMarginPct float64       `json:"expected_margin_pct"`
	CreatedBy         int64         `json:"created_by"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ProjectPhase is one stage of a project.
type ProjectPhase struct {
	ID           int64       `json:"id"`
	ProjectID    int64       `json:"project_id"`
	Name         Phase       `json:"name"`
	PhaseOrder   int         `json:"phase_order"`
	Status       PhaseStatus `json:"status"`
	OwnerUserID  int64       `json:"owner_user_id"`
	PlannedHours float64     `json:"planned_hours"`
	ActualHours  float64     `json:"actual_hours"`
}

// Task is one unit of work grouped under a phase.
type Task struct {
	ID             int64      `json:"id"`
	ProjectID      int64      `json:"project_id"`
	PhaseID        int64      `json:"phase_id"`
	Title          string     `json:"title"`
	Status         TaskStatus `json:"status"`
	AssigneeUserID int64      `json:"assignee_user_id"`
	EstimatedHours float64    `json:"estimated_hours"`
}

// ProjectBrief carries the technical sheet copied from the quote's first
// line item at conversion time.
type ProjectBrief struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"project_id"`
	Specs     json.RawMessage `json:"specs"`
	CreatedAt time.Time       `json:"created_at"`
}

var (
	// ErrNotFound indicates the project does not exist.
	ErrNotFound = errors.New("projects: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("projects: invalid input")
	// ErrQuoteNotApproved blocks conversion of quotes outside approved.
	ErrQuoteNotApproved = errors.New("projects: quote is not approved")
	// ErrAlreadyConverted indicates the quote already produced a project.
	ErrAlreadyConverted = errors.New("projects: quote already converted")
)
