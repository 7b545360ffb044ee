package inventory

import (
	"errors"
	"time"
)

// ReferenceType links a ledger row back to the business document that
// produced it.
type ReferenceType string

const (
	// ReferencePurchaseOrder marks rows posted by purchase order receiving.
	ReferencePurchaseOrder ReferenceType = "purchase_order"
	// ReferenceManualAdjustment marks rows posted from the stock adjustment form.
	ReferenceManualAdjustment ReferenceType = "manual_adjustment"
	// ReferenceProduction marks consumption posted by production tasks.
	ReferenceProduction ReferenceType = "production"
)

// Transaction is one append-only row of the stock ledger. Rows are never
// updated or deleted once written; StockAfter is a point-in-time snapshot
// that must always be reproducible by replaying the ledger.
type Transaction struct {
	ID            int64
	MaterialID    int64
	QtyIn         float64
	QtyOut        float64
	UnitCost      int64
	StockAfter    float64
	ReferenceType ReferenceType
	ReferenceID   string
	Note          string
	CreatedBy     int64
	CreatedAt     time.Time
}

// PostInput describes a movement to append to the ledger. Exactly one of
// QtyIn/QtyOut is expected to be positive per call.
type PostInput struct {
	MaterialID    int64
	QtyIn         float64
	QtyOut        float64
	UnitCost      int64
	ReferenceType ReferenceType
	ReferenceID   string
	Note          string
	ActorID       int64
}

// LedgerFilter narrows ledger listings.
type LedgerFilter struct {
	MaterialID int64
	From       time.Time
	To         time.Time
	Limit      int
}

var (
	// ErrInsufficientStock is returned when an outbound movement exceeds the
	// current balance. No row is written.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates a negative or empty movement.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative cost value.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("inventory: not found")
)
