package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	rows   []Transaction
	nextID int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListLedger(ctx context.Context, filter LedgerFilter) ([]Transaction, error) {
	out := []Transaction{}
	for _, row := range r.rows {
		if row.MaterialID == filter.MaterialID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memoryRepo) SumMovements(ctx context.Context, materialID int64) (float64, error) {
	var sum float64
	for _, row := range r.rows {
		if row.MaterialID == materialID {
			sum += row.QtyIn - row.QtyOut
		}
	}
	return sum, nil
}

func (tx *memoryTx) SumMovements(ctx context.Context, materialID int64) (float64, error) {
	return tx.repo.SumMovements(ctx, materialID)
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, row Transaction) (int64, error) {
	tx.repo.nextID++
	row.ID = tx.repo.nextID
	tx.repo.rows = append(tx.repo.rows, row)
	return row.ID, nil
}

func TestRunningBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	after, err := svc.PostTransaction(ctx, PostInput{MaterialID: 7, QtyIn: 10, UnitCost: 1500, ReferenceType: ReferencePurchaseOrder})
	require.NoError(t, err)
	require.InDelta(t, 10, after, 0.0001)

	after, err = svc.PostTransaction(ctx, PostInput{MaterialID: 7, QtyOut: 4, ReferenceType: ReferenceManualAdjustment})
	require.NoError(t, err)
	require.InDelta(t, 6, after, 0.0001)

	after, err = svc.PostTransaction(ctx, PostInput{MaterialID: 7, QtyIn: 2.5, UnitCost: 1600, ReferenceType: ReferencePurchaseOrder})
	require.NoError(t, err)
	require.InDelta(t, 8.5, after, 0.0001)

	// stock_after snapshots must match the replayed history at every row
	var running float64
	for _, row := range repo.rows {
		running += row.QtyIn - row.QtyOut
		require.InDelta(t, running, row.StockAfter, 0.0001)
	}

	balance, err := svc.Balance(ctx, 7)
	require.NoError(t, err)
	require.InDelta(t, 8.5, balance, 0.0001)
}

func TestOutExceedingBalanceWritesNoRow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.PostTransaction(ctx, PostInput{MaterialID: 3, QtyIn: 5, ReferenceType: ReferencePurchaseOrder})
	require.NoError(t, err)

	_, err = svc.PostTransaction(ctx, PostInput{MaterialID: 3, QtyOut: 6, ReferenceType: ReferenceManualAdjustment})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Len(t, repo.rows, 1)

	balance, err := svc.Balance(ctx, 3)
	require.NoError(t, err)
	require.InDelta(t, 5, balance, 0.0001)
}

func TestPostValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.PostTransaction(ctx, PostInput{MaterialID: 1, ReferenceType: ReferenceManualAdjustment})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostTransaction(ctx, PostInput{MaterialID: 1, QtyIn: 1, QtyOut: 1, ReferenceType: ReferenceManualAdjustment})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostTransaction(ctx, PostInput{MaterialID: 1, QtyIn: -2, ReferenceType: ReferenceManualAdjustment})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostTransaction(ctx, PostInput{MaterialID: 1, QtyIn: 1, UnitCost: -10, ReferenceType: ReferenceManualAdjustment})
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	_, err = svc.PostTransaction(ctx, PostInput{MaterialID: 1, QtyIn: 1, ReferenceType: ReferenceManualAdjustment, ReferenceID: "not-a-uuid"})
	require.Error(t, err)
	require.Empty(t, repo.rows)
}
