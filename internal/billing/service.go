package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/printops-erp/printops/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, []Payment, error)
	GetPayment(ctx context.Context, paymentID int64) (Payment, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]int64, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	Status   InvoiceStatus
	ClientID int64
	Limit    int
	Offset   int
}

// Service owns the invoice collection state machine.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs billing service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithClock overrides the time source. Used by tests for the overdue check.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInvoiceInput describes creation payload.
type CreateInvoiceInput struct {
	InvoiceNumber string
	ClientID      int64
	ProjectID     int64
	Total         int64
	DueDate       *time.Time
	Note          string
	ActorID       int64
}

// CreateInvoice persists a new invoice in the issued state.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	if input.ClientID == 0 {
		return Invoice{}, fmt.Errorf("%w: client required", ErrValidation)
	}
	if input.Total < 0 {
		return Invoice{}, fmt.Errorf("%w: total must be >= 0", ErrValidation)
	}
	if input.InvoiceNumber == "" {
		input.InvoiceNumber = fmt.Sprintf("F-%d", time.Now().UnixNano())
	}
	inv := Invoice{
		InvoiceNumber: input.InvoiceNumber,
		ClientID:      input.ClientID,
		ProjectID:     input.ProjectID,
		Status:        InvoiceStatusIssued,
		Total:         input.Total,
		DueDate:       input.DueDate,
		IssuedAt:      s.now(),
		Note:          input.Note,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, input.ActorID, "INVOICE_CREATE", inv.ID, false, map[string]any{"invoice_number": inv.InvoiceNumber, "total": inv.Total})
	return inv, nil
}

// PaymentInput describes a collection to register.
type PaymentInput struct {
	InvoiceID int64
	Amount    int64
	Method    string
	PaidAt    time.Time
	Note      string
	ActorID   int64
}

// AddPayment registers a payment and re-derives the invoice status in the
// same transaction.
func (s *Service) AddPayment(ctx context.Context, input PaymentInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	inv, _, err := s.repo.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return err
	}
	if inv.Status == InvoiceStatusCancelled {
		return ErrInvalidState
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.InsertPayment(ctx, Payment{
			InvoiceID: input.InvoiceID,
			Amount:    input.Amount,
			Method:    input.Method,
			PaidAt:    paidAt,
			Note:      input.Note,
		}); err != nil {
			return err
		}
		return s.recalcStatusTx(ctx, tx, input.InvoiceID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, input.ActorID, "PAYMENT_ADD", input.InvoiceID, false, map[string]any{"amount": input.Amount})
	return nil
}

// DeletePayment removes a payment and re-derives the invoice status.
func (s *Service) DeletePayment(ctx context.Context, paymentID int64, actorID int64) error {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeletePayment(ctx, paymentID); err != nil {
			return err
		}
		return s.recalcStatusTx(ctx, tx, payment.InvoiceID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PAYMENT_DELETE", payment.InvoiceID, false, map[string]any{"payment_id": paymentID, "amount": payment.Amount})
	return nil
}

// RecalcStatus re-derives the status of one invoice from its payments.
// Cancelled invoices are left untouched.
func (s *Service) RecalcStatus(ctx context.Context, invoiceID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.recalcStatusTx(ctx, tx, invoiceID)
	})
}

func (s *Service) recalcStatusTx(ctx context.Context, tx TxRepository, invoiceID int64) error {
	inv, payments, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == InvoiceStatusCancelled {
		return nil
	}
	var collected int64
	for _, payment := range payments {
		collected += payment.Amount
	}
	status := DeriveStatus(inv.Total, collected, inv.DueDate, s.now())
	if status == inv.Status {
		return nil
	}
	return tx.UpdateStatus(ctx, invoiceID, status)
}

// DeriveStatus computes the collection status. The order of checks matters:
// a fully or partially paid invoice is never reported overdue, even when the
// due date has passed.
func DeriveStatus(total, collected int64, dueDate *time.Time, now time.Time) InvoiceStatus {
	switch {
	case collected >= total && total > 0:
		return InvoiceStatusPaid
	case collected > 0:
		return InvoiceStatusPartial
	case dueDate != nil && dueDate.Before(now):
		return InvoiceStatusOverdue
	default:
		return InvoiceStatusIssued
	}
}

// OverrideStatus sets the status directly, bypassing derivation. The
// override is flagged in the audit trail so drift is traceable.
func (s *Service) OverrideStatus(ctx context.Context, invoiceID int64, status InvoiceStatus, actorID int64) error {
	switch status {
	case InvoiceStatusIssued, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	inv, payments, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	var collected int64
	for _, payment := range payments {
		collected += payment.Amount
	}
	derived := DeriveStatus(inv.Total, collected, inv.DueDate, s.now())
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, invoiceID, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "INVOICE_STATUS", invoiceID, status != derived, map[string]any{
		"from": string(inv.Status),
		"to":   string(status),
	})
	return nil
}

// MarkOverdue scans for issued invoices past their due date with nothing
// collected and flips them to overdue. Returns how many changed. Invoked
// from the nightly scan job.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	ids, err := s.repo.ListOverdueCandidates(ctx, asOf)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, id := range ids {
		if err := s.RecalcStatus(ctx, id); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// DeleteInvoice removes an invoice, payments first. Cascade is explicit.
func (s *Service) DeleteInvoice(ctx context.Context, invoiceID int64, actorID int64) error {
	inv, _, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeletePayments(ctx, invoiceID); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, invoiceID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "INVOICE_DELETE", invoiceID, false, map[string]any{"invoice_number": inv.InvoiceNumber})
	return nil
}

// Get fetches an invoice with its payments.
func (s *Service) Get(ctx context.Context, invoiceID int64) (Invoice, []Payment, error) {
	return s.repo.GetInvoice(ctx, invoiceID)
}

// List fetches invoices matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, forced bool, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "invoice", EntityID: fmt.Sprintf("%d", entityID), Forced: forced, Meta: meta})
}
