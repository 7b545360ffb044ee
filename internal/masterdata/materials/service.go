package materials

import (
	"context"
	"fmt"
	"strings"
)

// Repository defines data access methods for materials.
type Repository interface {
	List(ctx context.Context, search string, limit, offset int) ([]Material, error)
	Get(ctx context.Context, id int64) (Material, error)
	Create(ctx context.Context, material Material) (Material, error)
	Update(ctx context.Context, material Material) error
	Delete(ctx context.Context, id int64) error
	ListBelowMinStock(ctx context.Context) ([]Material, error)
}

// Service handles material business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Material, error) {
	return s.repo.List(ctx, search, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (Material, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, material Material) (Material, error) {
	if err := validate(material); err != nil {
		return Material{}, err
	}
	material.IsActive = true
	return s.repo.Create(ctx, material)
}

func (s *Service) Update(ctx context.Context, material Material) error {
	if material.ID <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	if err := validate(material); err != nil {
		return err
	}
	return s.repo.Update(ctx, material)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// ListBelowMinStock reports materials whose ledger balance sits below their
// configured minimum. Consumed by the dashboard.
func (s *Service) ListBelowMinStock(ctx context.Context) ([]Material, error) {
	return s.repo.ListBelowMinStock(ctx)
}

func validate(material Material) error {
	if strings.TrimSpace(material.Name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if material.UnitCost < 0 || material.MinStock < 0 {
		return fmt.Errorf("%w: negative amounts", ErrValidation)
	}
	return nil
}
