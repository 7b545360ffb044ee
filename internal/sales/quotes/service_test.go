package quotes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	quotes map[int64]Quote
	items  map[int64]QuoteItem
	nextID int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{quotes: make(map[int64]Quote), items: make(map[int64]QuoteItem)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetQuote(ctx context.Context, id int64) (Quote, []QuoteItem, error) {
	quote, ok := r.quotes[id]
	if !ok {
		return Quote{}, nil, ErrNotFound
	}
	return quote, r.itemsOf(id), nil
}

func (r *memoryRepo) GetItem(ctx context.Context, itemID int64) (QuoteItem, error) {
	item, ok := r.items[itemID]
	if !ok {
		return QuoteItem{}, ErrNotFound
	}
	return item, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Quote, error) {
	out := []Quote{}
	for _, quote := range r.quotes {
		if filter.Status == "" || quote.Status == filter.Status {
			out = append(out, quote)
		}
	}
	return out, nil
}

func (r *memoryRepo) itemsOf(quoteID int64) []QuoteItem {
	out := []QuoteItem{}
	for _, item := range r.items {
		if item.QuoteID == quoteID {
			out = append(out, item)
		}
	}
	return out
}

func (tx *memoryTx) CreateQuote(ctx context.Context, quote Quote) (int64, error) {
	tx.repo.nextID++
	quote.ID = tx.repo.nextID
	tx.repo.quotes[quote.ID] = quote
	return quote.ID, nil
}

func (tx *memoryTx) InsertItem(ctx context.Context, item QuoteItem) (int64, error) {
	tx.repo.nextID++
	item.ID = tx.repo.nextID
	tx.repo.items[item.ID] = item
	return item.ID, nil
}

func (tx *memoryTx) UpdateItem(ctx context.Context, item QuoteItem) error {
	tx.repo.items[item.ID] = item
	return nil
}

func (tx *memoryTx) DeleteItem(ctx context.Context, itemID int64) error {
	delete(tx.repo.items, itemID)
	return nil
}

func (tx *memoryTx) DeleteItems(ctx context.Context, quoteID int64) error {
	for id, item := range tx.repo.items {
		if item.QuoteID == quoteID {
			delete(tx.repo.items, id)
		}
	}
	return nil
}

func (tx *memoryTx) DeleteQuote(ctx context.Context, quoteID int64) error {
	delete(tx.repo.quotes, quoteID)
	return nil
}

func (tx *memoryTx) GetQuoteForUpdate(ctx context.Context, quoteID int64) (Quote, []QuoteItem, error) {
	return tx.repo.GetQuote(ctx, quoteID)
}

func (tx *memoryTx) UpdateTotals(ctx context.Context, quoteID int64, subtotal, tax, total int64) error {
	quote := tx.repo.quotes[quoteID]
	quote.Subtotal = subtotal
	quote.Tax = tax
	quote.Total = total
	tx.repo.quotes[quoteID] = quote
	return nil
}

func (tx *memoryTx) UpdateDiscount(ctx context.Context, quoteID int64, discount int64) error {
	quote := tx.repo.quotes[quoteID]
	quote.Discount = discount
	tx.repo.quotes[quoteID] = quote
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, quoteID int64, status QuoteStatus) error {
	quote := tx.repo.quotes[quoteID]
	quote.Status = status
	tx.repo.quotes[quoteID] = quote
	return nil
}

func TestCreateComputesTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	quote, err := svc.Create(ctx, CreateQuoteInput{
		ClientID: 1,
		Items: []ItemInput{
			{ServiceCategory: "Impresión digital", Qty: 100, UnitPrice: 500},
			{ServiceCategory: "Diseño gráfico", Qty: 2, UnitPrice: 15000},
		},
	})
	require.NoError(t, err)
	// 100x500 + 2x15000 = 80000; IVA 19% = 15200
	require.Equal(t, int64(80000), quote.Subtotal)
	require.Equal(t, int64(15200), quote.Tax)
	require.Equal(t, int64(95200), quote.Total)
	require.Equal(t, QuoteStatusDraft, quote.Status)
}

func TestDiscountAppliedBeforeTax(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	quote, err := svc.Create(ctx, CreateQuoteInput{
		ClientID: 1,
		Discount: 10000,
		Items:    []ItemInput{{Qty: 1, UnitPrice: 80000}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(80000), quote.Subtotal)
	// tax on 70000, total = 80000 + 13300 - 10000
	require.Equal(t, int64(13300), quote.Tax)
	require.Equal(t, int64(83300), quote.Total)

	// a discount above the subtotal clamps the tax base at zero
	require.NoError(t, svc.SetDiscount(ctx, quote.ID, 100000, 0))
	got, _, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.Tax)
	require.Equal(t, int64(-20000), got.Total)
}

func TestItemMutationsConvergeTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	quote, err := svc.Create(ctx, CreateQuoteInput{ClientID: 1, Items: []ItemInput{{Qty: 1, UnitPrice: 10000}}})
	require.NoError(t, err)

	require.NoError(t, svc.AddItem(ctx, quote.ID, ItemInput{Qty: 3, UnitPrice: 2000}, 0))
	_, items, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var added QuoteItem
	for _, item := range items {
		if item.LineNo == 2 {
			added = item
		}
	}
	require.NoError(t, svc.UpdateItem(ctx, added.ID, ItemInput{Qty: 5, UnitPrice: 2000}, 0))

	got, _, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	require.Equal(t, int64(20000), got.Subtotal)
	require.Equal(t, int64(3800), got.Tax)
	require.Equal(t, int64(23800), got.Total)

	// recalculation is idempotent on a stable item set
	require.NoError(t, svc.RecalcTotals(ctx, quote.ID))
	again, _, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	require.Equal(t, got.Total, again.Total)

	require.NoError(t, svc.DeleteItem(ctx, added.ID, 0))
	got, _, err = svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10000), got.Subtotal)
	require.Equal(t, int64(11900), got.Total)
}

func TestZeroItemsCollapseToZero(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	quote, err := svc.Create(ctx, CreateQuoteInput{ClientID: 1, Items: []ItemInput{{Qty: 1, UnitPrice: 5000}}})
	require.NoError(t, err)
	_, items, _ := svc.Get(ctx, quote.ID)
	require.NoError(t, svc.DeleteItem(ctx, items[0].ID, 0))

	got, _, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	require.Zero(t, got.Subtotal)
	require.Zero(t, got.Tax)
	require.Zero(t, got.Total)
}

func TestFractionalLineRoundsHalfUp(t *testing.T) {
	// 2.5 x 333 = 832.5 rounds up to 833
	require.Equal(t, int64(833), LineTotal(2.5, 333, 0, 0))
	// per-line discount and tax adjust the stored amount
	require.Equal(t, int64(900), LineTotal(1, 1000, 200, 100))
}

func TestStatusTransitionsAreFree(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	quote, err := svc.Create(ctx, CreateQuoteInput{ClientID: 1, Items: []ItemInput{{Qty: 1, UnitPrice: 1000}}})
	require.NoError(t, err)

	for _, status := range []QuoteStatus{QuoteStatusSent, QuoteStatusApproved, QuoteStatusDraft, QuoteStatusRejected, QuoteStatusApproved} {
		require.NoError(t, svc.UpdateStatus(ctx, quote.ID, status, 1))
		got, _, err := svc.Get(ctx, quote.ID)
		require.NoError(t, err)
		require.Equal(t, status, got.Status)
	}

	require.ErrorIs(t, svc.UpdateStatus(ctx, quote.ID, QuoteStatus("archived"), 1), ErrValidation)
}

func TestDeleteCascadesItems(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	quote, err := svc.Create(ctx, CreateQuoteInput{ClientID: 1, Items: []ItemInput{{Qty: 1, UnitPrice: 1000}, {Qty: 2, UnitPrice: 300}}})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, quote.ID, 0))

	_, _, err = svc.Get(ctx, quote.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.itemsOf(quote.ID))
}
