package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, user User, passwordHash string) (int64, error)
	FindFirstActiveByRole(ctx context.Context, roleCode string) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Email    string
	Name     string
	RoleCode string
	Password string
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email required", ErrValidation)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		Email:    email,
		Name:     strings.TrimSpace(input.Name),
		RoleCode: defaultRole(input.RoleCode),
		IsActive: true,
	}
	id, err := s.repo.CreateUser(ctx, user, string(hash))
	if err != nil {
		return User{}, err
	}
	user.ID = id
	return user, nil
}

// FindFirstActiveByRole returns the first active user holding the role,
// ordered by id. Callers fall back to the acting user when none exists.
func (s *Service) FindFirstActiveByRole(ctx context.Context, roleCode string) (User, error) {
	return s.repo.FindFirstActiveByRole(ctx, roleCode)
}

func defaultRole(code string) string {
	if code == "" {
		return RoleVentas
	}
	return code
}
