package model

// Priority is the binary triage label for a scored lead.
type Priority string

const (
	PriorityTarget    Priority = "target"
	PriorityNonTarget Priority = "non_target"
)

// TargetThreshold is the final-score cutoff for the "target" label.
const TargetThreshold = 60.0

// ScoreSource records which provider produced the base score.
type ScoreSource string

const (
	ScoreSourceRemote ScoreSource = "remote"
	ScoreSourceLocal  ScoreSource = "local"
)

// PriorityFor maps a final score to its triage label.
func PriorityFor(finalScore float64) Priority {
	if finalScore >= TargetThreshold {
		return PriorityTarget
	}
	return PriorityNonTarget
}

// BaseScore is the scoring provider's output before adjustment.
type BaseScore struct {
	BaseScore             float64            `json:"base_score"`
	IndustryMultiplier    float64            `json:"industry_multiplier"`
	IndustryAdjustedScore float64            `json:"industry_adjusted_score"`
	DetectedIndustry      string             `json:"detected_industry"`
	IndustryConfidence    string             `json:"industry_confidence"`
	Breakdown             map[string]float64 `json:"score_breakdown,omitempty"`
	Explanation           string             `json:"explanation,omitempty"`
	Source                ScoreSource        `json:"source"`
}

// Adjustment is one applied rule outcome.
type Adjustment struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// ScoringResult is the final per-row scoring outcome. Immutable once
// built by the adjustment engine.
type ScoringResult struct {
	CompanyName           string       `json:"company_name"`
	BaseScore             float64      `json:"base_score"`
	IndustryMultiplier    float64      `json:"industry_multiplier"`
	IndustryAdjustedScore float64      `json:"industry_adjusted_score"`
	LLMAdjustment         int          `json:"llm_adjustment"`
	FinalScore            float64      `json:"final_score"`
	Priority              Priority     `json:"priority"`
	DetectedIndustry      string       `json:"detected_industry"`
	IndustryConfidence    string       `json:"industry_confidence"`
	Source                ScoreSource  `json:"score_source"`
	Applied               []Adjustment `json:"applied_adjustments,omitempty"`
	Reasoning             string       `json:"reasoning"`
}

// IsTarget reports whether the lead cleared the target threshold.
func (s *ScoringResult) IsTarget() bool {
	return s.Priority == PriorityTarget
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
