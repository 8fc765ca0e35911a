// Package quality grades critical-field completeness after mapping and
// fallback resolution. The rendered one-line report travels on the profile
// and in batch exports; it never gates a later stage.
package quality

import (
	"fmt"
	"strings"

	"github.com/yolwise/leadscore-cli/internal/model"
)

// Completeness tier labels, best to worst.
const (
	LabelExcellent = "excellent"
	LabelVeryGood  = "very good"
	LabelGood      = "good"
	LabelFair      = "fair"
	LabelPoor      = "poor"
)

// maxMissingNamed caps how many missing field names the report spells out
// before collapsing the rest into a "+N more" suffix.
const maxMissingNamed = 3

// Grade maps a completeness percentage to its tier label.
func Grade(completeness float64) string {
	switch {
	case completeness >= 90:
		return LabelExcellent
	case completeness >= 75:
		return LabelVeryGood
	case completeness >= 60:
		return LabelGood
	case completeness >= 40:
		return LabelFair
	default:
		return LabelPoor
	}
}

// Score computes critical-field completeness for the profile, attaches the
// rendered report line, and returns the structured analysis with it.
func Score(p *model.Profile, fallbackUsed bool, fallbackFilled int) (model.QualityAnalysis, string) {
	total := len(model.CriticalFields)
	missing := p.MissingCritical()
	found := total - len(missing)

	qa := model.QualityAnalysis{
		CriticalFound:  found,
		CriticalTotal:  total,
		Missing:        missing,
		FallbackUsed:   fallbackUsed,
		FallbackFilled: fallbackFilled,
		Completeness:   float64(found) / float64(total) * 100,
	}
	line := Render(qa)
	p.QualityAnalysis = line
	return qa, line
}

// Render formats the analysis as the single-line report attached to
// profiles, e.g.
//
//	Data quality: fair (2/5 critical fields); fallback filled 1; missing: revenue_estimate, employees_estimate, headquarters
func Render(qa model.QualityAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data quality: %s (%d/%d critical fields)",
		Grade(qa.Completeness), qa.CriticalFound, qa.CriticalTotal)

	if qa.FallbackUsed {
		fmt.Fprintf(&b, "; fallback filled %d", qa.FallbackFilled)
	} else {
		b.WriteString("; no fallback")
	}

	if len(qa.Missing) > 0 {
		named := qa.Missing
		extra := 0
		if len(named) > maxMissingNamed {
			extra = len(named) - maxMissingNamed
			named = named[:maxMissingNamed]
		}
		fmt.Fprintf(&b, "; missing: %s", strings.Join(named, ", "))
		if extra > 0 {
			fmt.Fprintf(&b, " +%d more", extra)
		}
	}
	return b.String()
}
