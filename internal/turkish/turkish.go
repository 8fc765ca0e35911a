// Package turkish normalizes text for keyword matching over mixed
// Turkish and English company data.
package turkish

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fold trims s, lowercases it with Turkish case rules, and folds dotless
// ı to i. Turkish casing alone maps capital I to ı, which would break
// keyword lookups against English text typed in caps: "DIGITAL" lowers
// to "dıgıtal". The extra fold makes all four capital-I forms converge,
// so İstanbul, ISTANBUL and Istanbul compare equal. Both sides of a
// comparison must pass through Fold.
func Fold(s string) string {
	// A cases.Caser is stateful; build one per call so Fold stays safe
	// for concurrent use.
	lowered := cases.Lower(language.Turkish).String(strings.TrimSpace(s))
	return strings.ReplaceAll(lowered, "ı", "i")
}

// FoldAll returns Fold applied to every element, preserving order.
func FoldAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Fold(s)
	}
	return out
}
