// Package analysis enriches canonical profiles with a narrative company
// analysis produced by Claude. Every malformed-output recovery heuristic
// lives behind this package; callers only ever see a typed Result.
package analysis

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/turkish"
	"github.com/yolwise/leadscore-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024

	// cacheSize bounds the per-run dedupe cache. Lead sheets repeat
	// companies across rows; one analysis per company is enough.
	cacheSize = 256
)

// Result is the structured narrative analysis for one company. Degraded
// marks results recovered by scraping or returned empty after a failed
// call; the pipeline continues either way.
type Result struct {
	CompanyName         string   `json:"company_name"`
	Industry            string   `json:"industry"`
	RevenueEstimate     string   `json:"revenue_estimate"`
	EmployeesEstimate   string   `json:"employees_estimate"`
	BusinessType        string   `json:"business_type"`
	Headquarters        string   `json:"headquarters"`
	Locations           []string `json:"locations,omitempty"`
	KeyPeople           []string `json:"key_people,omitempty"`
	DiscoveredFacts     []string `json:"discovered_facts,omitempty"`
	GrowthIndicators    string   `json:"growth_indicators"`
	MarketPosition      string   `json:"market_position"`
	BusinessContext     string   `json:"business_context"`
	B2BServicePotential string   `json:"b2b_service_potential"`
	AnalysisConfidence  string   `json:"analysis_confidence"`

	Degraded bool `json:"-"`
}

// Analyzer runs narrative analysis calls against the Anthropic API.
type Analyzer struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	instructions string
	cache        *lru.Cache[string, *Result]
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithModel overrides the Claude model used for analysis calls.
func WithModel(model string) Option {
	return func(a *Analyzer) {
		if model != "" {
			a.model = model
		}
	}
}

// WithMaxTokens overrides the response token ceiling.
func WithMaxTokens(n int64) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithInstructions appends per-run operator notes to every prompt.
func WithInstructions(notes string) Option {
	return func(a *Analyzer) {
		a.instructions = notes
	}
}

// WithCacheSize bounds the per-company dedupe cache.
func WithCacheSize(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			cache, _ := lru.New[string, *Result](n)
			a.cache = cache
		}
	}
}

// New returns an Analyzer over the given client.
func New(client anthropic.Client, opts ...Option) *Analyzer {
	cache, _ := lru.New[string, *Result](cacheSize)
	a := &Analyzer{
		client:    client,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		cache:     cache,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Primer warms the prompt cache with the shared system preamble so the
// per-row calls that follow hit the cache. Failures are logged and
// ignored; priming is an optimization, not a requirement.
func (a *Analyzer) Primer(ctx context.Context) {
	req := a.buildRequest(model.NewProfile())
	resp, err := anthropic.PrimerRequest(ctx, a.client, req)
	if err != nil {
		zap.L().Debug("analysis primer failed", zap.Error(err))
		return
	}
	resp.Usage.LogCost(a.model, "primer")
}

// Analyze produces the narrative analysis for a profile. It never fails:
// transport errors and unusable responses degrade to an empty Result so
// the row can continue through scoring. Companies already analyzed in
// this run are served from the dedupe cache.
func (a *Analyzer) Analyze(ctx context.Context, p *model.Profile) *Result {
	name := p.Str(model.FieldCompanyName)
	key := turkish.Fold(name)

	if key != "" {
		if cached, ok := a.cache.Get(key); ok {
			zap.L().Debug("analysis cache hit", zap.String("company", name))
			return cached
		}
	}

	resp, err := a.client.CreateMessage(ctx, a.buildRequest(p))
	if err != nil {
		zap.L().Warn("analysis call failed, continuing without narrative",
			zap.String("company", name),
			zap.Error(err))
		return &Result{Degraded: true}
	}
	resp.Usage.LogCost(a.model, "analysis")

	res, ok := parseResult(resp)
	if !ok {
		zap.L().Warn("analysis response unusable, continuing without narrative",
			zap.String("company", name))
		res = &Result{Degraded: true}
	} else if res.Degraded {
		zap.L().Info("analysis recovered by text scraping",
			zap.String("company", name))
	}

	if key != "" {
		a.cache.Add(key, res)
	}
	return res
}

func (a *Analyzer) buildRequest(p *model.Profile) anthropic.MessageRequest {
	return anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserMessage(p, a.instructions)},
		},
	}
}

// MergeInto folds the analysis into a profile. Canonical fields are only
// written when still empty so mapped and fallback-resolved values win;
// analysis-only fields are always written. Discovered facts append to
// the profile's existing list, skipping duplicates.
func (r *Result) MergeInto(p *model.Profile) {
	if r == nil || p == nil {
		return
	}

	canonical := map[string]string{
		model.FieldCompanyName:       r.CompanyName,
		model.FieldIndustry:          r.Industry,
		model.FieldRevenueEstimate:   r.RevenueEstimate,
		model.FieldEmployeesEstimate: r.EmployeesEstimate,
		model.FieldBusinessType:      r.BusinessType,
		model.FieldHeadquarters:      r.Headquarters,
	}
	for field, v := range canonical {
		if v != "" {
			p.SetIfEmpty(field, v)
		}
	}

	if len(r.Locations) > 0 {
		p.Set(model.FieldLocations, r.Locations)
	}
	if len(r.KeyPeople) > 0 {
		p.Set(model.FieldKeyPeople, r.KeyPeople)
	}
	narrative := map[string]string{
		model.FieldGrowthIndicators:    r.GrowthIndicators,
		model.FieldMarketPosition:      r.MarketPosition,
		model.FieldBusinessContext:     r.BusinessContext,
		model.FieldB2BServicePotential: r.B2BServicePotential,
		model.FieldAnalysisConfidence:  r.AnalysisConfidence,
	}
	for field, v := range narrative {
		if v != "" {
			p.Set(field, v)
		}
	}

	for _, fact := range r.DiscoveredFacts {
		if fact == "" || containsFact(p.DiscoveredFacts, fact) {
			continue
		}
		p.DiscoveredFacts = append(p.DiscoveredFacts, fact)
	}
}

func containsFact(facts []string, fact string) bool {
	for _, f := range facts {
		if f == fact {
			return true
		}
	}
	return false
}
