package shared

import "math"

// IVARate is the Chilean VAT rate applied to quote and purchase order totals.
const IVARate = 0.19

// RoundCLP rounds a monetary value to the nearest whole peso, half away
// from zero upward. CLP has no fractional unit.
func RoundCLP(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// TaxCLP computes IVA over a taxable base, never taxing a negative base.
func TaxCLP(base int64) int64 {
	if base < 0 {
		base = 0
	}
	return RoundCLP(float64(base) * IVARate)
}
