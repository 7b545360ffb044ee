package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/printops-erp/printops/internal/inventory"
	"github.com/printops-erp/printops/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []Item, error)
	GetItem(ctx context.Context, itemID int64) (Item, error)
	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)
}

// InventoryPort posts receiving movements into the stock ledger.
type InventoryPort interface {
	PostTransaction(ctx context.Context, input inventory.PostInput) (float64, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilter narrows purchase order listings.
type ListFilter struct {
	Status     POStatus
	SupplierID int64
	Limit      int
	Offset     int
}

// Service orchestrates purchase order flows.
type Service struct {
	repo        RepositoryPort
	inventory   InventoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService constructs purchasing service.
func NewService(repo RepositoryPort, inv InventoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, inventory: inv, audit: audit, idempotency: idem}
}

// CreatePOInput describes creation payload.
type CreatePOInput struct {
	PONumber   string
	SupplierID int64
	Currency   string
	Discount   int64
	Shipping   int64
	Note       string
	ActorID    int64
	Items      []ItemInput
}

// ItemInput describes one order line.
type ItemInput struct {
	MaterialID   int64
	Qty          float64
	UnitPrice    int64
	LineDiscount int64
	LineTax      int64
}

// LineTotal computes the stored line amount: qty x price for plain lines,
// adjusted by per-line discount and tax when the form supplies them.
func LineTotal(qty float64, unitPrice, lineDiscount, lineTax int64) int64 {
	return shared.RoundCLP(qty*float64(unitPrice)) - lineDiscount + lineTax
}

// Create persists the order header and lines and computes its totals.
func (s *Service) Create(ctx context.Context, input CreatePOInput) (PurchaseOrder, error) {
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}
	if input.SupplierID == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	if input.PONumber == "" {
		input.PONumber = generateNumber("OC")
	}
	po := PurchaseOrder{
		PONumber:   input.PONumber,
		SupplierID: input.SupplierID,
		Status:     POStatusDraft,
		Discount:   input.Discount,
		Shipping:   input.Shipping,
		Currency:   defaultString(input.Currency, "CLP"),
		Note:       input.Note,
		CreatedBy:  input.ActorID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		poID, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = poID
		for i, line := range input.Items {
			if line.MaterialID == 0 || line.Qty <= 0 || line.UnitPrice < 0 {
				return ErrValidation
			}
			item := Item{
				POID:         poID,
				MaterialID:   line.MaterialID,
				LineNo:       i + 1,
				Qty:          line.Qty,
				UnitPrice:    line.UnitPrice,
				LineDiscount: line.LineDiscount,
				LineTax:      line.LineTax,
				LineTotal:    LineTotal(line.Qty, line.UnitPrice, line.LineDiscount, line.LineTax),
			}
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return s.recalcTotalsTx(ctx, tx, poID)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "PO_CREATE", po.ID, false, map[string]any{"po_number": po.PONumber})
	refreshed, _, err := s.repo.GetPO(ctx, po.ID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	return refreshed, nil
}

// AddItem appends a line and recalculates totals in the same transaction.
func (s *Service) AddItem(ctx context.Context, poID int64, input ItemInput, actorID int64) error {
	if input.MaterialID == 0 || input.Qty <= 0 || input.UnitPrice < 0 {
		return ErrValidation
	}
	po, items, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	if po.Status.Terminal() {
		return ErrInvalidState
	}
	item := Item{
		POID:         poID,
		MaterialID:   input.MaterialID,
		LineNo:       len(items) + 1,
		Qty:          input.Qty,
		UnitPrice:    input.UnitPrice,
		LineDiscount: input.LineDiscount,
		LineTax:      input.LineTax,
		LineTotal:    LineTotal(input.Qty, input.UnitPrice, input.LineDiscount, input.LineTax),
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.InsertItem(ctx, item); err != nil {
			return err
		}
		return s.recalcTotalsTx(ctx, tx, poID)
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
	item.Qty = input.Qty
	item.UnitPrice = input.UnitPrice
	item.LineDiscount = input.LineDiscount
	item.LineTax = input.LineTax
	item.LineTotal = LineTotal(input.Qty, input.UnitPrice, input.LineDiscount, input.LineTax)
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}
		return s.recalcTotalsTx(ctx, tx, item.POID)
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
		return s.recalcTotalsTx(ctx, tx, item.POID)
	})
}

// RecalcTotals recomputes header totals from current lines. Safe to call
// repeatedly; a zero-line order collapses to zero totals.
func (s *Service) RecalcTotals(ctx context.Context, poID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.recalcTotalsTx(ctx, tx, poID)
	})
}

func (s *Service) recalcTotalsTx(ctx context.Context, tx TxRepository, poID int64) error {
	po, items, err := tx.GetPOForUpdate(ctx, poID)
	if err != nil {
		return err
	}
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal
	}
	tax := shared.TaxCLP(subtotal - po.Discount)
	total := subtotal + tax + po.Shipping - po.Discount
	return tx.UpdateTotals(ctx, poID, subtotal, tax, total)
}

// ReceiveInput describes one receiving submission.
type ReceiveInput struct {
	ItemID      int64
	ReceivedNow float64
	ActorID     int64
	// ReceiptKey deduplicates double form submissions when provided.
	ReceiptKey string
}

// ReceiveItem applies a receipt against one line. The quantity is clamped to
// the pending amount; a clamped quantity of zero is a no-op. The receipt is
// posted to the stock ledger and the order status is re-derived.
func (s *Service) ReceiveItem(ctx context.Context, input ReceiveInput) error {
	item, err := s.repo.GetItem(ctx, input.ItemID)
	if err != nil {
		return err
	}
	po, _, err := s.repo.GetPO(ctx, item.POID)
	if err != nil {
		return err
	}
	if po.Status == POStatusCancelled {
		return ErrInvalidState
	}
	pending := item.Qty - item.ReceivedQty
	receivedNow := input.ReceivedNow
	if receivedNow > pending {
		receivedNow = pending
	}
	if receivedNow <= 0 {
		return nil
	}

	insertedKey := false
	if s.idempotency != nil && input.ReceiptKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.ReceiptKey, "purchasing.receive"); err != nil {
			return err
		}
		insertedKey = true
	}

	refID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("PO:%d:ITEM:%d:%f", po.ID, item.ID, item.ReceivedQty+receivedNow)))
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateReceivedQty(ctx, item.ID, item.ReceivedQty+receivedNow); err != nil {
			return err
		}
		if s.inventory != nil {
			_, err := s.inventory.PostTransaction(ctx, inventory.PostInput{
				MaterialID:    item.MaterialID,
				QtyIn:         receivedNow,
				UnitCost:      item.UnitPrice,
				ReferenceType: inventory.ReferencePurchaseOrder,
				ReferenceID:   refID.String(),
				Note:          fmt.Sprintf("Recepción %s", po.PONumber),
				ActorID:       input.ActorID,
			})
			if err != nil {
				return err
			}
		}
		_, items, err := tx.GetPOForUpdate(ctx, po.ID)
		if err != nil {
			return err
		}
		var ordered, received float64
		for _, line := range items {
			ordered += line.Qty
			received += line.ReceivedQty
		}
		status := POStatusPartial
		if received >= ordered {
			status = POStatusReceived
		}
		return tx.UpdateStatus(ctx, po.ID, status)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.ReceiptKey)
		}
		return err
	}
	s.recordAudit(ctx, input.ActorID, "PO_RECEIVE", po.ID, false, map[string]any{
		"item_id":      item.ID,
		"received_now": receivedNow,
	})
	return nil
}

// UpdateStatus sets the order status directly. Overrides that contradict the
// derived received/ordered ratio are allowed but flagged in the audit trail.
func (s *Service) UpdateStatus(ctx context.Context, poID int64, status POStatus, actorID int64) error {
	po, items, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	switch status {
	case POStatusDraft, POStatusSent, POStatusPartial, POStatusReceived, POStatusCancelled:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if status == POStatusCancelled && po.Status.Terminal() {
		return ErrInvalidState
	}
	var ordered, received float64
	for _, line := range items {
		ordered += line.Qty
		received += line.ReceivedQty
	}
	derived := deriveStatus(ordered, received, po.Status)
	forced := status != derived && (status == POStatusReceived || status == POStatusPartial)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, poID, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PO_STATUS", poID, forced, map[string]any{
		"from": string(po.Status),
		"to":   string(status),
	})
	return nil
}

// Delete removes the order, lines first. Cascade is explicit, not DB-enforced.
func (s *Service) Delete(ctx context.Context, poID int64, actorID int64) error {
	po, _, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteItems(ctx, poID); err != nil {
			return err
		}
		return tx.DeletePO(ctx, poID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PO_DELETE", poID, false, map[string]any{"po_number": po.PONumber})
	return nil
}

// Get fetches an order with its lines.
func (s *Service) Get(ctx context.Context, poID int64) (PurchaseOrder, []Item, error) {
	return s.repo.GetPO(ctx, poID)
}

// List fetches orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	return s.repo.List(ctx, filter)
}

func deriveStatus(ordered, received float64, current POStatus) POStatus {
	switch {
	case ordered > 0 && received >= ordered:
		return POStatusReceived
	case received > 0:
		return POStatusPartial
	default:
		return current
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, forced bool, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Forced: forced, Meta: meta})
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
