package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchState_Expired(t *testing.T) {
	now := time.Now()
	st := &BatchState{SavedAt: now.Add(-23 * time.Hour)}
	assert.False(t, st.Expired(now, 24*time.Hour))

	st.SavedAt = now.Add(-25 * time.Hour)
	assert.True(t, st.Expired(now, 24*time.Hour))
}

func TestBatchState_ResumeValid(t *testing.T) {
	st := &BatchState{Total: 100, Processed: 40, Succeeded: 38, Failed: 2}
	assert.True(t, st.ResumeValid())

	// Counters out of sync: cannot trust the checkpoint.
	st.Failed = 5
	assert.False(t, st.ResumeValid())

	// Fully processed: nothing to resume.
	done := &BatchState{Total: 10, Processed: 10, Succeeded: 10}
	assert.False(t, done.ResumeValid())

	var nilState *BatchState
	assert.False(t, nilState.ResumeValid())
}

func TestBatchState_TrimResultBodies(t *testing.T) {
	st := &BatchState{}
	for i := 0; i < 5; i++ {
		st.Results = append(st.Results, RowResult{
			Row:     i,
			Success: true,
			Score:   &ScoringResult{FinalScore: float64(i)},
			Quality: "good",
		})
	}

	st.TrimResultBodies(2)

	for i := 0; i < 3; i++ {
		assert.Nil(t, st.Results[i].Score, "row %d body trimmed", i)
		assert.Empty(t, st.Results[i].Quality)
	}
	assert.NotNil(t, st.Results[3].Score)
	assert.NotNil(t, st.Results[4].Score)
	assert.Len(t, st.Results, 5, "row entries survive trimming")
}

func TestBatchState_Targets(t *testing.T) {
	st := &BatchState{Results: []RowResult{
		{Success: true, Score: &ScoringResult{Priority: PriorityTarget}},
		{Success: true, Score: &ScoringResult{Priority: PriorityNonTarget}},
		{Success: false},
	}}
	assert.Equal(t, 1, st.Targets())
}
