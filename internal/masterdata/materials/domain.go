package materials

import (
	"errors"
	"time"
)

// Material is a stockable input (substrates, inks, vinyl rolls). It has no
// derived state of its own; the inventory ledger owns quantities.
type Material struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	UnitCost  int64     `json:"unit_cost"`
	MinStock  float64   `json:"min_stock"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound   = errors.New("materials: not found")
	ErrValidation = errors.New("materials: invalid input")
)
