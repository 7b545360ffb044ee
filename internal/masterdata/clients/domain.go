package clients

import (
	"errors"
	"time"
)

// Client is a customer of the shop. Plain master data; quotes, projects and
// invoices reference it by id.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RUT       string    `json:"rut,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound   = errors.New("clients: not found")
	ErrValidation = errors.New("clients: invalid input")
)
