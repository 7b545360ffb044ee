package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/printops-erp/printops/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetQuote(ctx context.Context, id int64) (Quote, []QuoteItem, error)
	GetItem(ctx context.Context, itemID int64) (QuoteItem, error)
	List(ctx context.Context, filter ListFilter) ([]Quote, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilter narrows quote listings.
type ListFilter struct {
	Status   QuoteStatus
	ClientID int64
	Limit    int
	Offset   int
}

// Service owns the quote lifecycle: item mutations with synchronous total
// recalculation and free-form status transitions. Conversion into a project
// lives in the projects package and only reads from here.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs quotes service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateQuoteInput describes creation payload.
type CreateQuoteInput struct {
	QuoteNumber string
	ClientID    int64
	Currency    string
	Discount    int64
	Note        string
	ActorID     int64
	Items       []ItemInput
}

// ItemInput describes one quote line.
type ItemInput struct {
	ServiceCategory string
	Description     string
	Qty             float64
	UnitPrice       int64
	LineDiscount    int64
	LineTax         int64
	MaterialEstCost int64
	HoursEstimated  float64
	Specs           json.RawMessage
}

// LineTotal computes the stored line amount: qty x price for plain lines,
// adjusted by per-line discount and tax when the form supplies them.
func LineTotal(qty float64, unitPrice, lineDiscount, lineTax int64) int64 {
	return shared.RoundCLP(qty*float64(unitPrice)) - lineDiscount + lineTax
}

// Create persists the quote header and lines and computes its totals.
func (s *Service) Create(ctx context.Context, input CreateQuoteInput) (Quote, error) {
	if input.ClientID == 0 {
		return Quote{}, fmt.Errorf("%w: client required", ErrValidation)
	}
	if input.QuoteNumber == "" {
		input.QuoteNumber = generateNumber("COT")
	}
	quote := Quote{
		QuoteNumber: input.QuoteNumber,
		ClientID:    input.ClientID,
		Status:      QuoteStatusDraft,
		Currency:    defaultString(input.Currency, "CLP"),
		Discount:    input.Discount,
		Note:        input.Note,
		CreatedBy:   input.ActorID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		quoteID, err := tx.CreateQuote(ctx, quote)
		if err != nil {
			return err
		}
		quote.ID = quoteID
		for i, line := range input.Items {
			if line.Qty <= 0 || line.UnitPrice < 0 {
				return ErrValidation
			}
			item := QuoteItem{
				QuoteID:         quoteID,
				LineNo:          i + 1,
				ServiceCategory: line.ServiceCategory,
				Description:     line.Description,
				Qty:             line.Qty,
				UnitPrice:       line.UnitPrice,
				LineDiscount:    line.LineDiscount,
				LineTax:         line.LineTax,
				LineTotal:       LineTotal(line.Qty, line.UnitPrice, line.LineDiscount, line.LineTax),
				MaterialEstCost: line.MaterialEstCost,
				HoursEstimated:  line.HoursEstimated,
				Specs:           line.Specs,
			}
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return s.recalcTotalsTx(ctx, tx, quoteID)
	})
	if err != nil {
		return Quote{}, err
	}
	s.recordAudit(ctx, input.ActorID, "QUOTE_CREATE", quote.ID, false, map[string]any{"quote_number": quote.QuoteNumber})
	refreshed, _, err := s.repo.GetQuote(ctx, quote.ID)
	if err != nil {
		return Quote{}, err
	}
	return refreshed, nil
}

// AddItem appends a line and recalculates totals in the same transaction.
func (s *Service) AddItem(ctx context.Context, quoteID int64, input ItemInput, actorID int64) error {
	if input.Qty <= 0 || input.UnitPrice < 0 {
		return ErrValidation
	}
	_, items, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	item := QuoteItem{
		QuoteID:         quoteID,
		LineNo:          len(items) + 1,
		ServiceCategory: input.ServiceCategory,
		Description:     input.Description,
		Qty:             input.Qty,
		UnitPrice:       input.UnitPrice,
		LineDiscount:    input.LineDiscount,
		LineTax:         input.LineTax,
		LineTotal:       LineTotal(input.Qty, input.UnitPrice, input.LineDiscount, input.LineTax),
		MaterialEstCost: input.MaterialEstCost,
		HoursEstimated:  input.HoursEstimated,
		Specs:           input.Specs,
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.InsertItem(ctx, item); err != nil {
			return err
		}
		return s.recalcTotalsTx(ctx, tx, quoteID)
	})
}

// UpdateItem rewrites an existing line and recalculates totals.
func (s *Service) UpdateItem(ctx context.Context, itemID int64, input ItemInput, actorID int64) error {
	if input.Qty <= 0 || input.UnitPrice < 0 {
		return ErrValidation
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	item.ServiceCategory = input.ServiceCategory
	item.Description = input.Description
	item.Qty = input.Qty
	item.UnitPrice = input.UnitPrice
	item.LineDiscount = input.LineDiscount
	item.LineTax = input.LineTax
	item.LineTotal = LineTotal(input.Qty, input.UnitPrice, input.LineDiscount, input.LineTax)
	item.MaterialEstCost = input.MaterialEstCost
	item.HoursEstimated = input.HoursEstimated
	if input.Specs != nil {
		item.Specs = input.Specs
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}
		return s.recalcTotalsTx(ctx, tx, item.QuoteID)
	})
}

// DeleteItem removes a line and recalculates totals.
func (s *Service) DeleteItem(ctx context.Context, itemID int64, actorID int64) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		return s.recalcTotalsTx(ctx, tx, item.QuoteID)
	})
}

// SetDiscount updates the header discount and recalculates totals.
func (s *Service) SetDiscount(ctx context.Context, quoteID int64, discount int64, actorID int64) error {
	if discount < 0 {
		return fmt.Errorf("%w: discount must be >= 0", ErrValidation)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateDiscount(ctx, quoteID, discount); err != nil {
			return err
		}
		return s.recalcTotalsTx(ctx, tx, quoteID)
	})
}

// RecalcTotals recomputes header totals from current lines. Safe to call
// repeatedly; a zero-line quote collapses to zero totals.
func (s *Service) RecalcTotals(ctx context.Context, quoteID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.recalcTotalsTx(ctx, tx, quoteID)
	})
}

func (s *Service) recalcTotalsTx(ctx context.Context, tx TxRepository, quoteID int64) error {
	quote, items, err := tx.GetQuoteForUpdate(ctx, quoteID)
	if err != nil {
		return err
	}
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal
	}
	tax := shared.TaxCLP(subtotal - quote.Discount)
	total := subtotal + tax - quote.Discount
	return tx.UpdateTotals(ctx, quoteID, subtotal, tax, total)
}

// UpdateStatus sets the quote status. Any transition is allowed; each one is
// audit-logged so the commercial trail stays reconstructable.
func (s *Service) UpdateStatus(ctx context.Context, quoteID int64, status QuoteStatus, actorID int64) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	quote, _, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	if quote.Status == status {
		return nil
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, quoteID, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "QUOTE_STATUS", quoteID, false, map[string]any{
		"from": string(quote.Status),
		"to":   string(status),
	})
	return nil
}

// Delete removes a quote, lines first. Cascade is explicit.
func (s *Service) Delete(ctx context.Context, quoteID int64, actorID int64) error {
	quote, _, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteItems(ctx, quoteID); err != nil {
			return err
		}
		return tx.DeleteQuote(ctx, quoteID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "QUOTE_DELETE", quoteID, false, map[string]any{"quote_number": quote.QuoteNumber})
	return nil
}

// Get fetches a quote with its items ordered by line number.
func (s *Service) Get(ctx context.Context, quoteID int64) (Quote, []QuoteItem, error) {
	return s.repo.GetQuote(ctx, quoteID)
}

// List fetches quotes matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Quote, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, forced bool, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "quote", EntityID: fmt.Sprintf("%d", entityID), Forced: forced, Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
