package users

import (
	"errors"
	"time"
)

// Role codes used by assignment logic. Production tasks default to the
// first active user holding RoleProduccion.
const (
	RoleAdmin      = "admin"
	RoleVentas     = "ventas"
	RoleProduccion = "produccion"
)

// User represents a user account.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	RoleCode  string    `json:"role_code"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("users: invalid input")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("users: email already registered")
)
