package batch

import (
	"sort"
	"strconv"

	"github.com/yolwise/leadscore-cli/internal/model"
)

// resultHeader returns the column header row for batch exports.
func resultHeader() []string {
	return []string{
		"Row", "Company", "Base Score", "Industry", "Adjusted Score",
		"LLM Adjustment", "Final Score", "Priority", "Score Source",
		"Quality", "Error",
	}
}

// resultRecords renders the batch outcome for the sink. Aligned output
// keeps one record per input row in source order; otherwise records
// rank by final score with failed rows last.
func resultRecords(st *model.BatchState, aligned bool) [][]string {
	if aligned {
		return alignedRecords(st)
	}
	return rankedRecords(st.Results)
}

func rankedRecords(results []model.RowResult) [][]string {
	ranked := make([]model.RowResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return finalScore(ranked[i]) > finalScore(ranked[j])
	})

	records := make([][]string, 0, len(ranked))
	for _, r := range ranked {
		records = append(records, record(r))
	}
	return records
}

// alignedRecords emits exactly one record per input row so sheet cells
// land next to the rows they grade. Rows whose results were compacted
// away come out blank past the row number.
func alignedRecords(st *model.BatchState) [][]string {
	byRow := make(map[int]model.RowResult, len(st.Results))
	for _, r := range st.Results {
		byRow[r.Row] = r
	}
	records := make([][]string, 0, st.Total)
	for i := 0; i < st.Total; i++ {
		r, ok := byRow[i]
		if !ok {
			r = model.RowResult{Row: i}
		}
		records = append(records, record(r))
	}
	return records
}

func record(r model.RowResult) []string {
	rec := []string{
		// Spreadsheet row number: one for the header row, one for
		// 1-based numbering.
		strconv.Itoa(r.Row + 2),
		r.CompanyName,
	}
	if r.Score != nil {
		rec = append(rec,
			formatScore(r.Score.BaseScore),
			r.Score.DetectedIndustry,
			formatScore(r.Score.IndustryAdjustedScore),
			strconv.Itoa(r.Score.LLMAdjustment),
			formatScore(r.Score.FinalScore),
			string(r.Score.Priority),
			string(r.Score.Source),
		)
	} else {
		rec = append(rec, "", "", "", "", "", "", "")
	}
	return append(rec, r.Quality, r.Error)
}

func finalScore(r model.RowResult) float64 {
	if r.Score == nil {
		return -1
	}
	return r.Score.FinalScore
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
