package projects

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyCategory(t *testing.T) {
	cases := []struct {
		category string
		want     Phase
	}{
		{"Diseño gráfico", PhaseDiseno},
		{"diseno grafico", PhaseDiseno},
		{"Impresión UV", PhaseProduccion},
		{"IMPRESIÓN OFFSET", PhaseProduccion},
		{"Vinilo adhesivo", PhaseProduccion},
		{"Serigrafía textil", PhaseProduccion},
		{"Entrega", PhaseEntrega},
		{"Despacho a regiones", PhaseEntrega},
		{"Instalación en terreno", PhaseEntrega},
		{"Brief inicial", PhaseBrief},
		{"Corrección de pruebas", PhasePreprensa},
		{"", PhasePreprensa},
		{"Consultoría", PhasePreprensa},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ClassifyCategory(tc.category), "category %q", tc.category)
	}
}

func TestNormalizeCategory(t *testing.T) {
	require.Equal(t, "impresion uv", normalizeCategory("  Impresión UV "))
	require.Equal(t, "senaletica", normalizeCategory("Señalética"))
}
