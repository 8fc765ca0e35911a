package yolwise

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testBaseURL = "https://yolwise.test"

func mockClient(transport *httpmock.MockTransport) Client {
	return NewClient("test-key",
		WithBaseURL(testBaseURL),
		WithHTTPClient(&http.Client{Transport: transport}),
	)
}

const scoreOKBody = `{
	"success": true,
	"result": {
		"company_name": "Hız Lojistik A.Ş.",
		"base_score": 70.0,
		"industry_multiplier": 1.17,
		"industry_adjusted_score": 81.9,
		"detected_industry": "logistics_supply_chain",
		"industry_confidence": "high",
		"priority_recommendation": "target",
		"industry_explanation": "Industry: logistics_supply_chain | Multiplier: ×1.17 | 58.8% target rate, complex operational B2B needs",
		"score_breakdown": {"company_size_score": 80, "industry_propensity_score": 40},
		"processing_time_ms": 12
	},
	"metadata": {"api_version": "1.0-yolwise", "scoring_model": "Turkish B2B Market", "target_threshold": 60}
}`

func TestScoreCompany_Success(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/score_company",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "test-key", req.Header.Get("X-API-Key"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

			var body ScoreRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "Hız Lojistik A.Ş.", body.CompanyName)
			assert.Equal(t, "Lojistik", body.CompanyData["industry"])

			return httpmock.NewStringResponse(http.StatusOK, scoreOKBody), nil
		})

	result, err := mockClient(transport).ScoreCompany(context.Background(), ScoreRequest{
		CompanyName: "Hız Lojistik A.Ş.",
		CompanyData: map[string]any{"industry": "Lojistik"},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.InDelta(t, 70.0, result.BaseScore, 0.001)
	assert.InDelta(t, 1.17, result.IndustryMultiplier, 0.001)
	assert.InDelta(t, 81.9, result.IndustryAdjustedScore, 0.001)
	assert.Equal(t, "logistics_supply_chain", result.DetectedIndustry)
	assert.Equal(t, "high", result.IndustryConfidence)
	assert.Equal(t, "target", result.PriorityRecommendation)
	assert.InDelta(t, 80.0, result.ScoreBreakdown["company_size_score"], 0.001)
	assert.Equal(t, 12, result.ProcessingTimeMS)
}

func TestScoreCompany_MissingName(t *testing.T) {
	transport := httpmock.NewMockTransport()

	_, err := mockClient(transport).ScoreCompany(context.Background(), ScoreRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company_name is required")
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestScoreCompany_AuthRejected(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/score_company",
		httpmock.NewStringResponder(http.StatusUnauthorized,
			`{"success": false, "error": "Invalid API key", "code": 401}`))

	_, err := mockClient(transport).ScoreCompany(context.Background(), ScoreRequest{CompanyName: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestScoreCompany_EnvelopeFailure(t *testing.T) {
	// HTTP 200 with success=false still counts as a refusal.
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/score_company",
		httpmock.NewStringResponder(http.StatusOK,
			`{"success": false, "error": "scoring engine offline"}`))

	_, err := mockClient(transport).ScoreCompany(context.Background(), ScoreRequest{CompanyName: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service refused")
	assert.Contains(t, err.Error(), "scoring engine offline")
}

func TestScoreCompany_MalformedResponse(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/score_company",
		httpmock.NewStringResponder(http.StatusOK, `{invalid json`))

	_, err := mockClient(transport).ScoreCompany(context.Background(), ScoreRequest{CompanyName: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestScoreCompany_NoRetry(t *testing.T) {
	var attempts atomic.Int32
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/score_company",
		func(*http.Request) (*http.Response, error) {
			attempts.Add(1)
			return httpmock.NewStringResponse(http.StatusInternalServerError,
				`{"success": false, "error": "Internal Server Error", "code": 500}`), nil
		})

	_, err := mockClient(transport).ScoreCompany(context.Background(), ScoreRequest{CompanyName: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), attempts.Load(), "transient failures degrade to local scoring, no retry")
}

func TestScoreCompany_ContextCanceled(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/score_company",
		httpmock.NewStringResponder(http.StatusOK, scoreOKBody))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mockClient(transport).ScoreCompany(ctx, ScoreRequest{CompanyName: "Acme"})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/health",
		httpmock.NewStringResponder(http.StatusOK,
			`{"status": "healthy", "version": "1.0-yolwise"}`))

	status, err := mockClient(transport).Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy())
	assert.Equal(t, "1.0-yolwise", status.Version)
}

func TestHealth_Down(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/health",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, `upstream down`))

	status, err := mockClient(transport).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.False(t, status.Healthy())
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()
	c := NewClient("my-key")
	hc := c.(*httpClient)
	assert.Equal(t, "my-key", hc.apiKey)
	assert.Equal(t, defaultBaseURL, hc.baseURL)
	assert.Equal(t, rate.Limit(5), hc.limiter.Limit())
	assert.NotNil(t, hc.http)
	assert.NotNil(t, hc.http.Transport)
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()
	c := NewClient("my-key", WithRateLimit(2))
	hc := c.(*httpClient)
	assert.Equal(t, rate.Limit(2), hc.limiter.Limit())

	// Zero and negative rates keep the default.
	c = NewClient("my-key", WithRateLimit(0))
	hc = c.(*httpClient)
	assert.Equal(t, rate.Limit(5), hc.limiter.Limit())
}
