package projects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/printops-erp/printops/internal/sales/quotes"
	"github.com/printops-erp/printops/internal/shared"
	"github.com/printops-erp/printops/internal/users"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProject(ctx context.Context, id int64) (Project, []ProjectPhase, []Task, error)
	GetBrief(ctx context.Context, projectID int64) (ProjectBrief, error)
	FindByQuoteID(ctx context.Context, quoteID int64) (Project, error)
	List(ctx context.Context, filter ListFilter) ([]Project, error)
}

// QuotesPort reads the quote being converted.
type QuotesPort interface {
	Get(ctx context.Context, quoteID int64) (quotes.Quote, []quotes.QuoteItem, error)
}

// UsersPort resolves role-based assignees.
type UsersPort interface {
	FindFirstActiveByRole(ctx context.Context, roleCode string) (users.User, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilter narrows project listings.
type ListFilter struct {
	Status   ProjectStatus
	ClientID int64
	Limit    int
	Offset   int
}

// Config carries conversion tunables.
type Config struct {
	// LaborRatePerHourCLP prices estimated hours into the project budget.
	LaborRatePerHourCLP int64
}

// Service owns projects and the one-shot conversion of approved quotes.
type Service struct {
	repo   RepositoryPort
	quotes QuotesPort
	users  UsersPort
	audit  AuditPort
	cfg    Config
	now    func() time.Time
}

// NewService constructs projects service.
func NewService(repo RepositoryPort, quotesPort QuotesPort, usersPort UsersPort, audit AuditPort, cfg Config) *Service {
	return &Service{repo: repo, quotes: quotesPort, users: usersPort, audit: audit, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source. Used by tests for deterministic codes.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ConvertQuote expands an approved quote into a project with its five fixed
// phases, seed tasks, one task per quote item and a closing task. The whole
// fan-out runs in a single transaction; a unique constraint on the quote
// reference closes the double-submission race.
func (s *Service) ConvertQuote(ctx context.Context, quoteID int64, actorID int64) (Project, error) {
	quote, items, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		if errors.Is(err, quotes.ErrNotFound) {
			return Project{}, fmt.Errorf("%w: quote %d", ErrNotFound, quoteID)
		}
		return Project{}, err
	}
	if quote.Status != quotes.QuoteStatusApproved {
		return Project{}, fmt.Errorf("%w: status %q", ErrQuoteNotApproved, quote.Status)
	}
	if _, err := s.repo.FindByQuoteID(ctx, quoteID); err == nil {
		return Project{}, ErrAlreadyConverted
	} else if !errors.Is(err, ErrNotFound) {
		return Project{}, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].LineNo < items[j].LineNo })
	var totalMaterialCost int64
	var totalHours float64
	serviceType := ""
	for _, item := range items {
		totalMaterialCost += item.MaterialEstCost
		totalHours += item.HoursEstimated
	}
	if len(items) > 0 {
		serviceType = items[0].ServiceCategory
	}

	productionUserID := actorID
	if s.users != nil {
		if user, err := s.users.FindFirstActiveByRole(ctx, users.RoleProduccion); err == nil {
			productionUserID = user.ID
		} else if !errors.Is(err, users.ErrNotFound) {
			return Project{}, err
		}
	}

	laborCost := shared.RoundCLP(totalHours * float64(s.cfg.LaborRatePerHourCLP))
	budgetCost := laborCost + totalMaterialCost
	budgetRevenue := quote.Total
	marginPct := 0.0
	if budgetRevenue > 0 {
		marginPct = float64(budgetRevenue-budgetCost) * 100 / float64(budgetRevenue)
	}

	createdAt := s.now()
	project := Project{
		Code:              fmt.Sprintf("PRJ-%s", createdAt.Format("20060102-150405")),
		Name:              fmt.Sprintf("Proyecto %s", quote.QuoteNumber),
		ClientID:          quote.ClientID,
		QuoteID:           &quoteID,
		Status:            ProjectStatusPlanning,
		ServiceType:       serviceType,
		BudgetRevenue:     budgetRevenue,
		BudgetCost:        budgetCost,
		ExpectedMarginPct: marginPct,
		CreatedBy:         actorID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		projectID, err := tx.CreateProject(ctx, project)
		if err != nil {
			return err
		}
		project.ID = projectID

		if len(items) > 0 && len(items[0].Specs) > 0 {
			if err := tx.InsertBrief(ctx, ProjectBrief{ProjectID: projectID, Specs: items[0].Specs}); err != nil {
				return err
			}
		}

		phaseIDs := make(map[Phase]int64, len(PhaseTemplates))
		phaseOwners := make(map[Phase]int64, len(PhaseTemplates))
		for i, tpl := range PhaseTemplates {
			owner := actorID
			if tpl.Production {
				owner = productionUserID
			}
			phaseID, err := tx.InsertPhase(ctx, ProjectPhase{
				ProjectID:    projectID,
				Name:         tpl.Name,
				PhaseOrder:   i + 1,
				Status:       PhaseStatusPending,
				OwnerUserID:  owner,
				PlannedHours: tpl.PlannedHours,
			})
			if err != nil {
				return err
			}
			phaseIDs[tpl.Name] = phaseID
			phaseOwners[tpl.Name] = owner
			if _, err := tx.InsertTask(ctx, Task{
				ProjectID:      projectID,
				PhaseID:        phaseID,
				Title:          fmt.Sprintf("%s - tarea inicial", tpl.Name),
				Status:         TaskStatusTodo,
				AssigneeUserID: owner,
			}); err != nil {
				return err
			}
		}

		for _, item := range items {
			phase := ClassifyCategory(item.ServiceCategory)
			hours := item.HoursEstimated
			if hours < 1 {
				hours = 1
			}
			if _, err := tx.InsertTask(ctx, Task{
				ProjectID:      projectID,
				PhaseID:        phaseIDs[phase],
				Title:          taskTitle(item),
				Status:         TaskStatusTodo,
				AssigneeUserID: phaseOwners[phase],
				EstimatedHours: hours,
			}); err != nil {
				return err
			}
		}

		_, err = tx.InsertTask(ctx, Task{
			ProjectID:      projectID,
			PhaseID:        phaseIDs[PhaseEntrega],
			Title:          "Cierre financiero y documentación",
			Status:         TaskStatusTodo,
			AssigneeUserID: productionUserID,
		})
		return err
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, actorID, "QUOTE_CONVERT", project.ID, false, map[string]any{
		"quote_id": quoteID,
		"code":     project.Code,
	})
	return project, nil
}

func taskTitle(item quotes.QuoteItem) string {
	if item.Description != "" {
		return item.Description
	}
	if item.ServiceCategory != "" {
		return item.ServiceCategory
	}
	return fmt.Sprintf("Línea %d", item.LineNo)
}

// Get fetches a project with phases and tasks.
func (s *Service) Get(ctx context.Context, projectID int64) (Project, []ProjectPhase, []Task, error) {
	return s.repo.GetProject(ctx, projectID)
}

// GetBrief fetches the technical sheet copied at conversion, if any.
func (s *Service) GetBrief(ctx context.Context, projectID int64) (ProjectBrief, error) {
	return s.repo.GetBrief(ctx, projectID)
}

// List fetches projects matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Project, error) {
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a project through its lifecycle. Transitions are free.
func (s *Service) UpdateStatus(ctx context.Context, projectID int64, status ProjectStatus, actorID int64) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	project, _, _, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Status == status {
		return nil
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, projectID, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PROJECT_STATUS", projectID, false, map[string]any{
		"from": string(project.Status),
		"to":   string(status),
	})
	return nil
}

// Delete removes a project and its children. Cascade is explicit: tasks,
// phases, brief, then the header.
func (s *Service) Delete(ctx context.Context, projectID int64, actorID int64) error {
	project, _, _, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteTasks(ctx, projectID); err != nil {
			return err
		}
		if err := tx.DeletePhases(ctx, projectID); err != nil {
			return err
		}
		if err := tx.DeleteBrief(ctx, projectID); err != nil {
			return err
		}
		return tx.DeleteProject(ctx, projectID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PROJECT_DELETE", projectID, false, map[string]any{"code": project.Code})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, forced bool, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "project", EntityID: fmt.Sprintf("%d", entityID), Forced: forced, Meta: meta})
}
