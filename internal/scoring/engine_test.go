package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yolwise/leadscore-cli/internal/model"
)

func testEngine() *Engine {
	return New(nil, WithReferenceYear(2026))
}

func sizeProfile(employees, revenue float64) *model.Profile {
	p := model.NewProfile()
	if employees > 0 {
		p.Set(model.FieldEmployeesEstimate, employees)
	}
	if revenue > 0 {
		p.Set(model.FieldRevenueEstimate, revenue)
	}
	return p
}

func TestScoreCompanySize(t *testing.T) {
	tests := []struct {
		name      string
		employees float64
		revenue   float64
		want      float64
	}{
		{"empty", 0, 0, 30},
		{"micro team", 10, 0, 35},
		{"mid team", 450, 0, 45},
		{"large team", 1200, 0, 55},
		{"enterprise team", 6000, 0, 60},
		{"small revenue only", 0, 5_000_000, 33},
		{"mid revenue only", 0, 150_000_000, 45},
		{"large revenue only", 0, 1_500_000_000, 55},
		{"team and revenue", 1200, 250_000_000, 75}, // 30 + 25 + 20
		{"both maxed", 6000, 2_000_000_000, 85},     // 30 + 30 + 25
	}

	e := testEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.scoreCompanySize(sizeProfile(tt.employees, tt.revenue))
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestScoreCompanySize_TextNumbers(t *testing.T) {
	// Fallback output may carry numbers as prose.
	p := model.NewProfile()
	p.Set(model.FieldEmployeesEstimate, "yaklaşık 1200 kişi")
	p.Set(model.FieldRevenueEstimate, "250 milyon TL")

	got := testEngine().scoreCompanySize(p)
	assert.InDelta(t, 75.0, got, 0.01) // same bands as parsed numbers
}

func TestScorePropensity(t *testing.T) {
	tests := []struct {
		name     string
		industry string
		want     float64
	}{
		{"empty defaults", "", 40},
		{"high via logistics", "Logistics and Supply Chain", 85},
		{"high beats medium order", "Chemical manufacturing", 85},
		{"medium via food", "Food & Beverage", 60},
		{"low via retail", "Retail", 25},
		{"low via bare it inside digital", "Digital Marketing", 25},
		{"turkish text unclassified", "Lojistik", 40},
		{"unknown", "Müzik prodüksiyon", 40},
	}

	e := testEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := model.NewProfile()
			p.Set(model.FieldIndustry, tt.industry)
			assert.InDelta(t, tt.want, e.scorePropensity(p), 0.01)
		})
	}
}

func TestScoreFinancialCapacity(t *testing.T) {
	e := testEngine()

	t.Run("empty", func(t *testing.T) {
		assert.InDelta(t, 30.0, e.scoreFinancialCapacity(model.NewProfile()), 0.01)
	})

	t.Run("age bands", func(t *testing.T) {
		ages := []struct {
			year float64
			want float64
		}{
			{1998, 55}, // 28 years: +25
			{2014, 50}, // 12 years: +20
			{2019, 45}, // 7 years: +15
			{2024, 35}, // 2 years: +5
		}
		for _, a := range ages {
			p := model.NewProfile()
			p.Set(model.FieldYearFounded, a.year)
			assert.InDelta(t, a.want, e.scoreFinancialCapacity(p), 0.01, "year %v", a.year)
		}
	})

	t.Run("formal structure fires once", func(t *testing.T) {
		p := model.NewProfile()
		p.Set(model.FieldCompanyName, "Acme Ltd. Şti.")
		assert.InDelta(t, 50.0, e.scoreFinancialCapacity(p), 0.01)
	})

	t.Run("all signals", func(t *testing.T) {
		p := model.NewProfile()
		p.Set(model.FieldCompanyName, "Acme A.Ş.")
		p.Set(model.FieldYearFounded, float64(1998))
		p.Set(model.FieldWebsite, "acme.com.tr")
		assert.InDelta(t, 90.0, e.scoreFinancialCapacity(p), 0.01) // 30+25+20+15
	})
}

func TestScoreGeographic(t *testing.T) {
	tests := []struct {
		name string
		city string
		want float64
	}{
		{"tier1", "İstanbul", 70},
		{"tier2", "Bursa", 65},
		{"tier3", "Samsun", 60},
		{"industrial", "Gebze", 62},
		{"other", "Hakkari", 50},
		{"empty", "", 50},
	}

	e := testEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := model.NewProfile()
			p.Set(model.FieldHeadquarters, tt.city)
			assert.InDelta(t, tt.want, e.scoreGeographic(p), 0.01)
		})
	}
}

func TestScoreAdditional(t *testing.T) {
	e := testEngine()

	t.Run("empty", func(t *testing.T) {
		assert.InDelta(t, 30.0, e.scoreAdditional(model.NewProfile()), 0.01)
	})

	t.Run("description depth bands", func(t *testing.T) {
		for _, tc := range []struct {
			runes int
			want  float64
		}{
			{30, 40},
			{60, 45},
			{150, 55},
		} {
			p := model.NewProfile()
			p.Set(model.FieldDescription, strings.Repeat("ş", tc.runes))
			assert.InDelta(t, tc.want, e.scoreAdditional(p), 0.01, "%d runes", tc.runes)
		}
	})

	t.Run("contact completeness", func(t *testing.T) {
		p := model.NewProfile()
		p.Set(model.FieldPhone, "+90 212 000 0000")
		p.Set(model.FieldWebsite, "acme.com.tr")
		assert.InDelta(t, 60.0, e.scoreAdditional(p), 0.01) // 30+15+15
	})
}

func TestScore_FullProfile(t *testing.T) {
	p := model.NewProfile()
	p.Set(model.FieldCompanyName, "Hız Lojistik A.Ş.")
	p.Set(model.FieldIndustry, "Lojistik")
	p.Set(model.FieldEmployeesEstimate, float64(6000))
	p.Set(model.FieldRevenueEstimate, float64(250_000_000))
	p.Set(model.FieldYearFounded, float64(1998))
	p.Set(model.FieldHeadquarters, "İstanbul")
	p.Set(model.FieldWebsite, "hizlojistik.com.tr")
	p.Set(model.FieldPhone, "+90 212 000 0000")
	p.Set(model.FieldDescription, "Türkiye genelinde taşımacılık ağı")

	got := testEngine().Score(p)

	// size 80 (30+30+20), propensity 40 (Turkish text misses the English
	// lists), financial 90, geo 70, additional 70 (short description,
	// phone, website):
	// 80*.35 + 40*.25 + 90*.20 + 70*.10 + 70*.10 = 70.0
	assert.InDelta(t, 70.0, got.BaseScore, 0.01)
	assert.Equal(t, "logistics_supply_chain", got.DetectedIndustry)
	assert.Equal(t, "high", got.IndustryConfidence)
	assert.InDelta(t, 1.17, got.IndustryMultiplier, 0.001)
	assert.InDelta(t, 81.9, got.IndustryAdjustedScore, 0.01) // 70 * 1.17
	assert.Equal(t, model.ScoreSourceLocal, got.Source)
	assert.Contains(t, got.Explanation, "logistics_supply_chain")
	assert.InDelta(t, 80.0, got.Breakdown[ComponentCompanySize], 0.01)
	assert.InDelta(t, 40.0, got.Breakdown[ComponentPropensity], 0.01)
}

func TestScore_EmptyProfile(t *testing.T) {
	got := testEngine().Score(model.NewProfile())

	// 30*.35 + 40*.25 + 30*.20 + 50*.10 + 30*.10 = 34.5
	assert.InDelta(t, 34.5, got.BaseScore, 0.01)
	assert.Equal(t, "other", got.DetectedIndustry)
	assert.InDelta(t, 1.0, got.IndustryMultiplier, 0.001)
	assert.InDelta(t, 34.5, got.IndustryAdjustedScore, 0.01)
}

func TestScore_MultiplierClamp(t *testing.T) {
	// A strong renewables profile cannot exceed 100 after the 1.20
	// multiplier.
	p := model.NewProfile()
	p.Set(model.FieldCompanyName, "Güneş Enerji A.Ş.")
	p.Set(model.FieldIndustry, "Renewable Energy and Solar Sustainability")
	p.Set(model.FieldEmployeesEstimate, float64(6000))
	p.Set(model.FieldRevenueEstimate, float64(2_000_000_000))
	p.Set(model.FieldYearFounded, float64(1990))
	p.Set(model.FieldHeadquarters, "İstanbul")
	p.Set(model.FieldWebsite, "gunes.com.tr")
	p.Set(model.FieldPhone, "+90 212 111 1111")
	p.Set(model.FieldDescription, strings.Repeat("güneş enerjisi çözümleri ", 8))

	got := testEngine().Score(p)

	assert.Equal(t, "renewables_environment", got.DetectedIndustry)
	assert.LessOrEqual(t, got.IndustryAdjustedScore, 100.0)
	assert.GreaterOrEqual(t, got.IndustryAdjustedScore, got.BaseScore)
}