package billing

import (
	"errors"
	"time"
)

// Invoice collection statuses. All but cancelled are derived from the
// collected total and the due date; cancelled is a manual override.
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice domain model. Total is whole CLP.
type Invoice struct {
	ID            int64
	InvoiceNumber string
	ClientID      int64
	ProjectID     int64
	Status        InvoiceStatus
	Total         int64
	DueDate       *time.Time
	IssuedAt      time.Time
	Note          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Payment is one collection against an invoice.
type Payment struct {
	ID        int64
	InvoiceID int64
	Amount    int64
	Method    string
	PaidAt    time.Time
	Note      string
	CreatedAt time.Time
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("billing: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("billing: invalid input")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("billing: invalid state transition")
)
