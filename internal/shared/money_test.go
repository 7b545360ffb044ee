package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundCLP(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{832.4, 832},
		{832.5, 833},
		{832.6, 833},
		{100000, 100000},
		{2.5 * 333, 833},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, RoundCLP(tc.in), "RoundCLP(%v)", tc.in)
	}
}

func TestTaxCLP(t *testing.T) {
	require.Equal(t, int64(19000), TaxCLP(100000))
	require.Equal(t, int64(19), TaxCLP(100))
	require.Equal(t, int64(0), TaxCLP(0))
}

func TestTaxCLPNegativeBaseClampsToZero(t *testing.T) {
	require.Equal(t, int64(0), TaxCLP(-50000))
}
