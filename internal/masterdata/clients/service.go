package clients

import (
	"context"
	"fmt"
	"strings"
)

// Repository defines data access methods for clients.
type Repository interface {
	List(ctx context.Context, search string, limit, offset int) ([]Client, error)
	Get(ctx context.Context, id int64) (Client, error)
	Create(ctx context.Context, client Client) (Client, error)
	Update(ctx context.Context, client Client) error
	Delete(ctx context.Context, id int64) error
}

// Service handles client business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Client, error) {
	return s.repo.List(ctx, search, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, client Client) (Client, error) {
	if strings.TrimSpace(client.Name) == "" {
		return Client{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	client.IsActive = true
	return s.repo.Create(ctx, client)
}

func (s *Service) Update(ctx context.Context, client Client) error {
	if client.ID <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	if strings.TrimSpace(client.Name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.Update(ctx, client)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}
