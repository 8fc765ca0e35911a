package model

import "time"

// BatchStatus is the orchestrator state machine label.
type BatchStatus string

const (
	BatchStatusFresh        BatchStatus = "fresh"
	BatchStatusRunning      BatchStatus = "running"
	BatchStatusCheckpointed BatchStatus = "checkpointed"
	BatchStatusCompleted    BatchStatus = "completed"
	BatchStatusFailed       BatchStatus = "failed"
)

// RunOptions is the resume blob: everything needed to re-open the same
// row source and continue a suspended batch.
type RunOptions struct {
	Source        string `json:"source"` // csv | xlsx | sheets
	Path          string `json:"path,omitempty"`
	Sheet         string `json:"sheet,omitempty"`
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	Range         string `json:"range,omitempty"`
	Output        string `json:"output,omitempty"`
	Offline       bool   `json:"offline,omitempty"` // skip narrative/fallback calls
}

// RowResult is one processed row's outcome. Failed rows carry the error
// string instead of a score.
type RowResult struct {
	Row         int            `json:"row"`
	CompanyName string         `json:"company_name"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	Score       *ScoringResult `json:"score,omitempty"`
	Quality     string         `json:"quality,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
}

// BatchState is the persisted checkpoint for one logical batch.
// Processed is monotone non-decreasing and never exceeds Total.
type BatchState struct {
	Key       string      `json:"key"`
	RunID     string      `json:"run_id"`
	Status    BatchStatus `json:"status"`
	Total     int         `json:"total"`
	Processed int         `json:"processed"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Results   []RowResult `json:"results"`
	Options   RunOptions  `json:"options"`
	StartedAt time.Time   `json:"started_at"`
	SavedAt   time.Time   `json:"saved_at"`
}

// Expired reports whether the checkpoint is older than the expiry
// window and must be discarded rather than resumed.
func (s *BatchState) Expired(now time.Time, expiry time.Duration) bool {
	return now.Sub(s.SavedAt) > expiry
}

// ResumeValid reports whether this state can seed a resume: counters
// consistent and at least one row left.
func (s *BatchState) ResumeValid() bool {
	if s == nil {
		return false
	}
	return s.Processed >= 0 && s.Processed <= s.Total &&
		s.Succeeded+s.Failed == s.Processed && s.Processed < s.Total
}

// TrimResultBodies drops per-row score payloads for all but the most
// recent keep entries. Counters and row indexes survive so resume and
// reporting stay exact.
func (s *BatchState) TrimResultBodies(keep int) {
	if keep < 0 {
		keep = 0
	}
	cutoff := len(s.Results) - keep
	for i := 0; i < cutoff; i++ {
		s.Results[i].Score = nil
		s.Results[i].Quality = ""
	}
}

// DropResults removes the result history entirely, keeping counters.
// Last-resort compaction when the payload ceiling is still exceeded.
func (s *BatchState) DropResults() {
	s.Results = nil
}

// Targets counts rows whose score cleared the target threshold.
func (s *BatchState) Targets() int {
	n := 0
	for _, r := range s.Results {
		if r.Success && r.Score != nil && r.Score.IsTarget() {
			n++
		}
	}
	return n
}

// BatchResult is what one orchestrator invocation hands back. Partial
// runs set Incomplete and a human continuation hint.
type BatchResult struct {
	State        *BatchState   `json:"state"`
	Incomplete   bool          `json:"incomplete"`
	Continuation string        `json:"continuation,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}
