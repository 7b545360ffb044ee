package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	invoices map[int64]Invoice
	payments map[int64][]Payment
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: make(map[int64]Invoice), payments: make(map[int64][]Payment)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (Invoice, []Payment, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, nil, ErrNotFound
	}
	return inv, append([]Payment(nil), r.payments[id]...), nil
}

func (r *memoryRepo) GetPayment(ctx context.Context, paymentID int64) (Payment, error) {
	for _, payments := range r.payments {
		for _, payment := range payments {
			if payment.ID == paymentID {
				return payment, nil
			}
		}
	}
	return Payment{}, ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	out := []Invoice{}
	for _, inv := range r.invoices {
		if filter.Status == "" || inv.Status == filter.Status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]int64, error) {
	ids := []int64{}
	for id, inv := range r.invoices {
		if inv.Status == InvoiceStatusIssued && inv.DueDate != nil && inv.DueDate.Before(asOf) && len(r.payments[id]) == 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (tx *memoryTx) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	tx.repo.nextID++
	inv.ID = tx.repo.nextID
	tx.repo.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (tx *memoryTx) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (Invoice, []Payment, error) {
	return tx.repo.GetInvoice(ctx, invoiceID)
}

func (tx *memoryTx) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	tx.repo.nextID++
	payment.ID = tx.repo.nextID
	tx.repo.payments[payment.InvoiceID] = append(tx.repo.payments[payment.InvoiceID], payment)
	return payment.ID, nil
}

func (tx *memoryTx) DeletePayment(ctx context.Context, paymentID int64) error {
	for invoiceID, payments := range tx.repo.payments {
		out := payments[:0]
		for _, payment := range payments {
			if payment.ID != paymentID {
				out = append(out, payment)
			}
		}
		tx.repo.payments[invoiceID] = out
	}
	return nil
}

func (tx *memoryTx) DeletePayments(ctx context.Context, invoiceID int64) error {
	delete(tx.repo.payments, invoiceID)
	return nil
}

func (tx *memoryTx) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	delete(tx.repo.invoices, invoiceID)
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error {
	inv := tx.repo.invoices[invoiceID]
	inv.Status = status
	tx.repo.invoices[invoiceID] = inv
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDeriveStatusOrdering(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -10)
	future := now.AddDate(0, 0, 10)

	require.Equal(t, InvoiceStatusPaid, DeriveStatus(1000, 1000, &past, now))
	require.Equal(t, InvoiceStatusPaid, DeriveStatus(1000, 1500, nil, now))
	// partial beats overdue even when the invoice is late
	require.Equal(t, InvoiceStatusPartial, DeriveStatus(1000, 500, &past, now))
	require.Equal(t, InvoiceStatusOverdue, DeriveStatus(1000, 0, &past, now))
	require.Equal(t, InvoiceStatusIssued, DeriveStatus(1000, 0, &future, now))
	require.Equal(t, InvoiceStatusIssued, DeriveStatus(1000, 0, nil, now))
	// a zero-total invoice is never "paid"
	require.Equal(t, InvoiceStatusIssued, DeriveStatus(0, 0, nil, now))
}

func TestPaymentLifecycle(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -5)
	repo := newMemoryRepo()
	svc := NewService(repo, nil).WithClock(fixedClock(now))
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: 1, Total: 100000, DueDate: &past})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusIssued, inv.Status)

	require.NoError(t, svc.RecalcStatus(ctx, inv.ID))
	got, _, _ := svc.Get(ctx, inv.ID)
	require.Equal(t, InvoiceStatusOverdue, got.Status)

	// any positive payment pulls the invoice out of overdue for good
	require.NoError(t, svc.AddPayment(ctx, PaymentInput{InvoiceID: inv.ID, Amount: 40000}))
	got, _, _ = svc.Get(ctx, inv.ID)
	require.Equal(t, InvoiceStatusPartial, got.Status)

	require.NoError(t, svc.AddPayment(ctx, PaymentInput{InvoiceID: inv.ID, Amount: 60000}))
	got, payments, _ := svc.Get(ctx, inv.ID)
	require.Equal(t, InvoiceStatusPaid, got.Status)
	require.Len(t, payments, 2)

	// removing a payment re-derives to partial, not overdue
	require.NoError(t, svc.DeletePayment(ctx, payments[1].ID, 0))
	got, _, _ = svc.Get(ctx, inv.ID)
	require.Equal(t, InvoiceStatusPartial, got.Status)

	require.NoError(t, svc.DeletePayment(ctx, payments[0].ID, 0))
	got, _, _ = svc.Get(ctx, inv.ID)
	require.Equal(t, InvoiceStatusOverdue, got.Status)
}

func TestAddPaymentValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: 1, Total: 5000})
	require.NoError(t, err)

	require.ErrorIs(t, svc.AddPayment(ctx, PaymentInput{InvoiceID: inv.ID, Amount: 0}), ErrValidation)
	require.ErrorIs(t, svc.AddPayment(ctx, PaymentInput{InvoiceID: inv.ID, Amount: -100}), ErrValidation)

	require.NoError(t, svc.OverrideStatus(ctx, inv.ID, InvoiceStatusCancelled, 1))
	require.ErrorIs(t, svc.AddPayment(ctx, PaymentInput{InvoiceID: inv.ID, Amount: 100}), ErrInvalidState)
}

func TestCancelledStickyOnRecalc(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: 1, Total: 5000})
	require.NoError(t, err)
	require.NoError(t, svc.OverrideStatus(ctx, inv.ID, InvoiceStatusCancelled, 1))
	require.NoError(t, svc.RecalcStatus(ctx, inv.ID))
	got, _, _ := svc.Get(ctx, inv.ID)
	require.Equal(t, InvoiceStatusCancelled, got.Status)
}

func TestMarkOverdueScan(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 30)
	repo := newMemoryRepo()
	svc := NewService(repo, nil).WithClock(fixedClock(now))
	ctx := context.Background()

	late, err := svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: 1, Total: 1000, DueDate: &past})
	require.NoError(t, err)
	onTime, err := svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: 1, Total: 1000, DueDate: &future})
	require.NoError(t, err)
	latePaid, err := svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: 1, Total: 1000, DueDate: &past})
	require.NoError(t, err)
	require.NoError(t, svc.AddPayment(ctx, PaymentInput{InvoiceID: latePaid.ID, Amount: 200}))

	changed, err := svc.MarkOverdue(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, changed)

	got, _, _ := svc.Get(ctx, late.ID)
	require.Equal(t, InvoiceStatusOverdue, got.Status)
	got, _, _ = svc.Get(ctx, onTime.ID)
	require.Equal(t, InvoiceStatusIssued, got.Status)
	got, _, _ = svc.Get(ctx, latePaid.ID)
	require.Equal(t, InvoiceStatusPartial, got.Status)
}

func TestDeleteInvoiceCascades(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{ClientID: 1, Total: 1000})
	require.NoError(t, err)
	require.NoError(t, svc.AddPayment(ctx, PaymentInput{InvoiceID: inv.ID, Amount: 500}))
	require.NoError(t, svc.DeleteInvoice(ctx, inv.ID, 0))
	_, _, err = svc.Get(ctx, inv.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.payments[inv.ID])
}
