package adjust

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yolwise/leadscore-cli/internal/model"
)

// MaxAdjustment bounds the net rule contribution in both directions.
const MaxAdjustment = 25

// Engine applies the rule battery to scored profiles.
type Engine struct {
	rules []Rule
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default battery.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.rules = rules
		}
	}
}

// New builds an Engine with the default battery unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply evaluates the battery against the profile and folds the accepted
// deltas into the final score. Any battery failure degrades to zero
// adjustment so the base score always carries forward.
func (e *Engine) Apply(base model.BaseScore, p *model.Profile) model.ScoringResult {
	fired := e.evaluate(p)
	total, applied := Aggregate(fired)

	final := model.Clamp(base.IndustryAdjustedScore+float64(total), 0, 100)
	name := ""
	if p != nil {
		name = p.Str(model.FieldCompanyName)
	}
	return model.ScoringResult{
		CompanyName:           name,
		BaseScore:             base.BaseScore,
		IndustryMultiplier:    base.IndustryMultiplier,
		IndustryAdjustedScore: base.IndustryAdjustedScore,
		LLMAdjustment:         total,
		FinalScore:            final,
		Priority:              model.PriorityFor(final),
		DetectedIndustry:      base.DetectedIndustry,
		IndustryConfidence:    base.IndustryConfidence,
		Source:                base.Source,
		Applied:               applied,
		Reasoning:             reasoning(base, applied),
	}
}

func (e *Engine) evaluate(p *model.Profile) (fired []model.Adjustment) {
	if p == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("adjust: rule battery panicked, carrying base score forward", zap.Any("panic", r))
			fired = nil
		}
	}()
	for _, rule := range e.rules {
		if adj := rule.Eval(p); adj != nil && adj.Delta != 0 {
			fired = append(fired, *adj)
		}
	}
	return fired
}

// Aggregate resolves fired adjustments under the ±MaxAdjustment cap.
// Positives apply first, largest first, each skipped whole if it would
// push the total past +MaxAdjustment; negatives follow, most negative
// first, skipped whole if they would breach -MaxAdjustment. Positives
// going first is business policy: weak positive signals are recorded
// before negatives compete for the remaining headroom. The returned
// applied slice preserves application order.
func Aggregate(fired []model.Adjustment) (int, []model.Adjustment) {
	var pos, neg []model.Adjustment
	for _, a := range fired {
		switch {
		case a.Delta > 0:
			pos = append(pos, a)
		case a.Delta < 0:
			neg = append(neg, a)
		}
	}
	sort.SliceStable(pos, func(i, j int) bool { return pos[i].Delta > pos[j].Delta })
	sort.SliceStable(neg, func(i, j int) bool { return neg[i].Delta < neg[j].Delta })

	total := 0
	applied := make([]model.Adjustment, 0, len(fired))
	for _, a := range pos {
		if total+a.Delta <= MaxAdjustment {
			total += a.Delta
			applied = append(applied, a)
		}
	}
	for _, a := range neg {
		if total+a.Delta >= -MaxAdjustment {
			total += a.Delta
			applied = append(applied, a)
		}
	}

	// Final safety net; unreachable when every delta obeys the walk checks.
	if total > MaxAdjustment {
		total = MaxAdjustment
	}
	if total < -MaxAdjustment {
		total = -MaxAdjustment
	}
	if len(applied) == 0 {
		applied = nil
	}
	return total, applied
}

func reasoning(base model.BaseScore, applied []model.Adjustment) string {
	parts := make([]string, 0, len(applied)+1)
	if base.Explanation != "" {
		parts = append(parts, base.Explanation)
	}
	for _, a := range applied {
		parts = append(parts, a.Reason)
	}
	return strings.Join(parts, " • ")
}
