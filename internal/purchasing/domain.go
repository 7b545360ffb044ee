package purchasing

import (
	"errors"
	"time"
)

// Purchase order lifecycle statuses. The received/partial pair is derived
// from line receiving progress; the rest are set explicitly.
type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusSent      POStatus = "sent"
	POStatusPartial   POStatus = "partial"
	POStatusReceived  POStatus = "received"
	POStatusCancelled POStatus = "cancelled"
)

// PurchaseOrder domain model. Monetary fields are whole CLP.
type PurchaseOrder struct {
	ID         int64
	PONumber   string
	SupplierID int64
	Status     POStatus
	Subtotal   int64
	Discount   int64
	Tax        int64
	Shipping   int64
	Total      int64
	Currency   string
	Note       string
	CreatedBy  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Item is one purchase order line. ReceivedQty never exceeds Qty.
type Item struct {
	ID           int64
	POID         int64
	MaterialID   int64
	LineNo       int
	Qty          float64
	ReceivedQty  float64
	UnitPrice    int64
	LineDiscount int64
	LineTax      int64
	LineTotal    int64
}

var (
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("purchasing: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchasing: invalid input")
)

// Terminal reports whether no further transitions are allowed from s.
func (s POStatus) Terminal() bool {
	return s == POStatusReceived || s == POStatusCancelled
}
