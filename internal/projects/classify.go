package projects

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// classifierRule maps a set of keywords to the phase a quote item belongs
// to. Rules are evaluated in order, first match wins. Keywords are stored in
// normalized form (lowercase, no diacritics) and matched by substring.
type classifierRule struct {
	keywords []string
	phase    Phase
}

var classifierRules = []classifierRule{
	{keywords: []string{"brief", "reunion", "levantamiento"}, phase: PhaseBrief},
	{keywords: []string{"diseno", "diagramacion", "ilustracion", "branding", "logo"}, phase: PhaseDiseno},
	{keywords: []string{"impres", "vinilo", "serigraf", "grabado", "troquel", "laminado", "uv", "gigantograf", "ploteo"}, phase: PhaseProduccion},
	{keywords: []string{"entrega", "despacho", "instalacion", "montaje"}, phase: PhaseEntrega},
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeCategory lowercases and strips diacritics so "Diseño Gráfico"
// and "diseno grafico" classify identically.
func normalizeCategory(s string) string {
	out, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ClassifyCategory maps a service category onto one of the five phases.
// Unmatched categories default to Preprensa.
func ClassifyCategory(category string) Phase {
	normalized := normalizeCategory(category)
	for _, rule := range classifierRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.phase
			}
		}
	}
	return PhasePreprensa
}
