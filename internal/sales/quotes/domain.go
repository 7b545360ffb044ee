package quotes

import (
	"encoding/json"
	"errors"
	"time"
)

// QuoteStatus enumerates the commercial lifecycle of a quote. Transitions
// are free-form: any status may be set from any other. Conversion into a
// project is a separate one-shot operation gated on "approved".
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusApproved QuoteStatus = "approved"
	QuoteStatusRejected QuoteStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusApproved, QuoteStatusRejected:
		return true
	}
	return false
}

// Quote is a priced proposal sent to a client. Monetary amounts are whole
// CLP. Subtotal, Tax and Total are derived from the items and must never be
// written directly; Discount is caller-supplied and only applied during
// recalculation.
type Quote struct {
	ID          int64       `json:"id"`
	QuoteNumber string      `json:"quote_number"`
	ClientID    int64       `json:"client_id"`
	Status      QuoteStatus `json:"status"`
	Currency    string      `json:"currency"`
	Subtotal    int64       `json:"subtotal"`
	Discount    int64       `json:"discount"`
	Tax         int64       `json:"tax"`
	Total       int64       `json:"total"`
	Note        string      `json:"note,omitempty"`
	CreatedBy   int64       `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// QuoteItem is one priced line of a quote. ServiceCategory feeds the
// conversion classifier; MaterialEstCost and HoursEstimated feed the project
// budget. Specs carries the technical sheet as an opaque JSON blob.
type QuoteItem struct {
	ID              int64           `json:"id"`
	QuoteID         int64           `json:"quote_id"`
	LineNo          int             `json:"line_no"`
	ServiceCategory string          `json:"service_category"`
	Description     string          `json:"description,omitempty"`
	Qty             float64         `json:"qty"`
	UnitPrice       int64           `json:"unit_price"`
	LineDiscount    int64           `json:"line_discount"`
	LineTax         int64           `json:"line_tax"`
	LineTotal       int64           `json:"line_total"`
	MaterialEstCost int64           `json:"material_est_cost"`
	HoursEstimated  float64         `json:"hours_estimated"`
	Specs           json.RawMessage `json:"specs,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

var (
	// ErrNotFound indicates the quote or item does not exist.
	ErrNotFound = errors.New("quotes: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("quotes: invalid input")
)
