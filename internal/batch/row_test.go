package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolwise/leadscore-cli/internal/adjust"
	"github.com/yolwise/leadscore-cli/internal/analysis"
	"github.com/yolwise/leadscore-cli/internal/config"
	"github.com/yolwise/leadscore-cli/internal/fallback"
	"github.com/yolwise/leadscore-cli/internal/industry"
	"github.com/yolwise/leadscore-cli/internal/mapper"
	"github.com/yolwise/leadscore-cli/internal/metrics"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/scoring"
	"github.com/yolwise/leadscore-cli/pkg/anthropic"
	"github.com/yolwise/leadscore-cli/pkg/yolwise"
)

// stubLLM answers every message with the same canned reply.
type stubLLM struct {
	reply string
	calls int
}

func (s *stubLLM) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.calls++
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.reply}},
	}, nil
}

func TestOrchestrator_Run_RemoteScoring(t *testing.T) {
	dir := t.TempDir()
	path := writeLeadCSV(t, dir, uniformLeads(3)...)
	st := testStore(t)
	remote := &fakeRemote{healthy: true}
	o := newTestOrchestrator(t, st, config.BatchConfig{}, remote, nil)

	opts := csvOptions(path)
	opts.Offline = false
	res, err := o.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, remote.healthCalls)
	assert.Equal(t, 3, remote.scoreCalls)
	require.Len(t, res.State.Results, 3)
	for _, r := range res.State.Results {
		assert.True(t, r.Success)
		require.NotNil(t, r.Score)
		assert.Equal(t, model.ScoreSourceRemote, r.Score.Source)
		assert.Equal(t, "logistics_supply_chain", r.Score.DetectedIndustry)
	}
}

func TestOrchestrator_Run_RemoteFailureFallsBackLocal(t *testing.T) {
	dir := t.TempDir()
	path := writeLeadCSV(t, dir, uniformLeads(3)...)
	st := testStore(t)
	remote := &fakeRemote{healthy: true}
	remote.scoreFn = func(yolwise.ScoreRequest) (*yolwise.ScoreResult, error) {
		return nil, errors.New("service briefly unavailable")
	}
	met := metrics.New()
	o := newTestOrchestrator(t, st, config.BatchConfig{}, remote, met)

	opts := csvOptions(path)
	opts.Offline = false
	res, err := o.Run(context.Background(), opts)
	require.NoError(t, err)

	// Remote failures do not fail rows; the local engine covers them.
	assert.Equal(t, 3, res.State.Succeeded)
	for _, r := range res.State.Results {
		require.NotNil(t, r.Score)
		assert.Equal(t, model.ScoreSourceLocal, r.Score.Source)
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(met.RemoteScoreFailures))
}

func TestOrchestrator_Run_RemoteUnhealthySkipsRemote(t *testing.T) {
	dir := t.TempDir()
	path := writeLeadCSV(t, dir, uniformLeads(2)...)
	st := testStore(t)
	remote := &fakeRemote{healthy: false}
	o := newTestOrchestrator(t, st, config.BatchConfig{}, remote, nil)

	opts := csvOptions(path)
	opts.Offline = false
	res, err := o.Run(context.Background(), opts)
	require.NoError(t, err)

	// A degraded health probe routes the whole batch to local scoring
	// without per-row remote attempts.
	assert.Equal(t, 1, remote.healthCalls)
	assert.Equal(t, 0, remote.scoreCalls)
	for _, r := range res.State.Results {
		require.NotNil(t, r.Score)
		assert.Equal(t, model.ScoreSourceLocal, r.Score.Source)
	}
}

func TestOrchestrator_Run_HealthProbeErrorSkipsRemote(t *testing.T) {
	dir := t.TempDir()
	path := writeLeadCSV(t, dir, uniformLeads(2)...)
	st := testStore(t)
	remote := &fakeRemote{healthErr: errors.New("connection refused")}
	o := newTestOrchestrator(t, st, config.BatchConfig{}, remote, nil)

	opts := csvOptions(path)
	opts.Offline = false
	res, err := o.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 0, remote.scoreCalls)
	assert.Equal(t, 2, res.State.Succeeded)
}

func TestOrchestrator_Run_RowPanicIsolated(t *testing.T) {
	dir := t.TempDir()
	path := writeLeadCSV(t, dir, uniformLeads(3)...)
	st := testStore(t)
	remote := &fakeRemote{healthy: true}
	remote.scoreFn = func(req yolwise.ScoreRequest) (*yolwise.ScoreResult, error) {
		if strings.Contains(req.CompanyName, "001") {
			panic("scoring exploded")
		}
		return &yolwise.ScoreResult{
			CompanyName:           req.CompanyName,
			BaseScore:             70,
			IndustryMultiplier:    1.17,
			IndustryAdjustedScore: 81.9,
			DetectedIndustry:      "logistics_supply_chain",
			IndustryConfidence:    "high",
		}, nil
	}
	o := newTestOrchestrator(t, st, config.BatchConfig{}, remote, nil)

	opts := csvOptions(path)
	opts.Offline = false
	res, err := o.Run(context.Background(), opts)
	require.NoError(t, err)

	// One poisoned row fails; the batch still completes.
	assert.False(t, res.Incomplete)
	assert.Equal(t, 3, res.State.Processed)
	assert.Equal(t, 2, res.State.Succeeded)
	assert.Equal(t, 1, res.State.Failed)

	bad := res.State.Results[1]
	assert.False(t, bad.Success)
	assert.Nil(t, bad.Score)
	assert.Contains(t, bad.Error, "panic: scoring exploded")
	assert.GreaterOrEqual(t, bad.DurationMS, int64(0))

	assert.True(t, res.State.Results[0].Success)
	assert.True(t, res.State.Results[2].Success)
}

func TestOrchestrator_Run_FallbackAndAnalysis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leads.csv")
	content := "Company Name,Uzman Notu,Saha Gözlemi,Ek Veri\n" +
		"Acme Lojistik A.Ş.,Şehirlerarası taşımacılık ve depoculuk,Kadro yaklaşık 250 kişi,Yıllık 15 milyon TL\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	resolverLLM := &stubLLM{reply: `{
		"industry": "lojistik ve taşımacılık",
		"revenue_estimate": "15 million",
		"employees_estimate": "250",
		"headquarters": "İstanbul"
	}`}
	analyzerLLM := &stubLLM{reply: `{
		"company_name": "Acme Lojistik A.Ş.",
		"b2b_service_potential": "high",
		"analysis_confidence": "high"
	}`}

	st := testStore(t)
	o := New(config.BatchConfig{}, st,
		mapper.New(),
		fallback.New(resolverLLM),
		analysis.New(analyzerLLM),
		scoring.New(industry.New()),
		adjust.New(),
		nil, nil, nil,
	)

	opts := model.RunOptions{Source: "csv", Path: path}
	res, err := o.Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, res.State.Results, 1)
	r := res.State.Results[0]
	require.True(t, r.Success)
	assert.Equal(t, "Acme Lojistik A.Ş.", r.CompanyName)

	// The resolver placed the three leftover columns plus the sheet gave
	// nothing else, so all four missing criticals come from fallback.
	assert.Contains(t, r.Quality, "5/5 critical fields")
	assert.Contains(t, r.Quality, "fallback filled 4")
	assert.Equal(t, 1, resolverLLM.calls)

	// Primer plus one row analysis.
	assert.Equal(t, 2, analyzerLLM.calls)

	require.NotNil(t, r.Score)
	assert.Equal(t, model.ScoreSourceLocal, r.Score.Source)
	assert.Equal(t, "logistics_supply_chain", r.Score.DetectedIndustry)

	// High potential +15, high confidence +5, tier-1 headquarters +4.
	assert.Equal(t, 24, r.Score.LLMAdjustment)
	assert.Len(t, r.Score.Applied, 3)
	assert.Equal(t, r.Score.FinalScore >= 60, r.Score.IsTarget())
}
