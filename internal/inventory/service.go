package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/printops-erp/printops/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListLedger(ctx context.Context, filter LedgerFilter) ([]Transaction, error)
	SumMovements(ctx context.Context, materialID int64) (float64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock ledger postings. The ledger is the single source
// of truth for stock: the balance is always derived by summing the full
// history inside the posting transaction, never read from a cached counter.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// PostTransaction appends one movement and returns the resulting balance.
// An outbound movement that would drive the balance negative writes no row
// and returns ErrInsufficientStock.
func (s *Service) PostTransaction(ctx context.Context, input PostInput) (float64, error) {
	if input.MaterialID == 0 {
		return 0, errors.New("inventory: material required")
	}
	if input.QtyIn < 0 || input.QtyOut < 0 {
		return 0, ErrInvalidQuantity
	}
	if input.QtyIn == 0 && input.QtyOut == 0 {
		return 0, ErrInvalidQuantity
	}
	if input.QtyIn > 0 && input.QtyOut > 0 {
		return 0, fmt.Errorf("%w: movement must be in or out, not both", ErrInvalidQuantity)
	}
	if input.UnitCost < 0 {
		return 0, ErrInvalidUnitCost
	}
	if input.ReferenceType == "" {
		return 0, errors.New("inventory: reference type required")
	}
	if input.ReferenceID != "" {
		if _, err := uuid.Parse(input.ReferenceID); err != nil {
			return 0, fmt.Errorf("inventory: invalid ref id: %w", err)
		}
	}

	var stockAfter float64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		balance, err := tx.SumMovements(ctx, input.MaterialID)
		if err != nil {
			return err
		}
		if input.QtyOut > balance {
			return ErrInsufficientStock
		}
		stockAfter = balance + input.QtyIn - input.QtyOut
		_, err = tx.InsertTransaction(ctx, Transaction{
			MaterialID:    input.MaterialID,
			QtyIn:         input.QtyIn,
			QtyOut:        input.QtyOut,
			UnitCost:      input.UnitCost,
			StockAfter:    stockAfter,
			ReferenceType: input.ReferenceType,
			ReferenceID:   input.ReferenceID,
			Note:          input.Note,
			CreatedBy:     input.ActorID,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("inventory:%s", input.ReferenceType),
			Entity:   "inventory_tx",
			EntityID: fmt.Sprintf("%d", input.MaterialID),
			Meta: map[string]any{
				"material_id": input.MaterialID,
				"qty_in":      input.QtyIn,
				"qty_out":     input.QtyOut,
				"stock_after": stockAfter,
			},
		})
	}
	return stockAfter, nil
}

// Balance replays the ledger for one material. Reports use the stored
// StockAfter snapshots; when the two disagree the replayed value wins.
func (s *Service) Balance(ctx context.Context, materialID int64) (float64, error) {
	if materialID == 0 {
		return 0, errors.New("inventory: material required")
	}
	return s.repo.SumMovements(ctx, materialID)
}

// Ledger lists movements for one material, oldest first.
func (s *Service) Ledger(ctx context.Context, filter LedgerFilter) ([]Transaction, error) {
	if filter.MaterialID == 0 {
		return nil, errors.New("inventory: material required")
	}
	return s.repo.ListLedger(ctx, filter)
}
