// Package yolwise provides a client for the hosted Yolwise lead-scoring API.
package yolwise

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://yolwiseleadscoring.replit.app"

	// The hosted service runs on a small instance; stay polite.
	defaultRPS = 5.0
)

// Client performs scoring calls against the Yolwise API.
type Client interface {
	// ScoreCompany scores a single company on the hosted service.
	ScoreCompany(ctx context.Context, req ScoreRequest) (*ScoreResult, error)
	// Health reports service availability.
	Health(ctx context.Context) (*HealthStatus, error)
}

// ScoreRequest is the request body for POST /score_company.
type ScoreRequest struct {
	CompanyName string         `json:"company_name"`
	CompanyData map[string]any `json:"company_data,omitempty"`
}

// ScoreResult is the result object inside a successful scoring reply.
type ScoreResult struct {
	CompanyName            string             `json:"company_name"`
	BaseScore              float64            `json:"base_score"`
	IndustryMultiplier     float64            `json:"industry_multiplier"`
	IndustryAdjustedScore  float64            `json:"industry_adjusted_score"`
	DetectedIndustry       string             `json:"detected_industry"`
	IndustryConfidence     string             `json:"industry_confidence"`
	PriorityRecommendation string             `json:"priority_recommendation"`
	IndustryExplanation    string             `json:"industry_explanation"`
	ScoreBreakdown         map[string]float64 `json:"score_breakdown"`
	ProcessingTimeMS       int                `json:"processing_time_ms"`
}

// Metadata accompanies every successful reply.
type Metadata struct {
	APIVersion      string  `json:"api_version"`
	ScoringModel    string  `json:"scoring_model"`
	TargetThreshold float64 `json:"target_threshold"`
}

// HealthStatus is the reply from GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Healthy reports whether the service declared itself usable.
func (h *HealthStatus) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

// envelope is the {success, result, metadata} wrapper on API replies.
// Failures carry error/message instead of result.
type envelope struct {
	Success  bool            `json:"success"`
	Result   json.RawMessage `json:"result"`
	Metadata Metadata        `json:"metadata"`
	Error    string          `json:"error"`
	Message  string          `json:"message"`
	Code     int             `json:"code"`
}

func (e *envelope) reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default requests-per-second budget.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = newLimiter(rps)
		}
	}
}

func newLimiter(rps float64) *rate.Limiter {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

type httpClient struct {
	apiKey  string
	baseURL string
	limiter *rate.Limiter
	http    *http.Client
}

// NewClient creates a Yolwise scoring API client. Calls are not retried;
// callers degrade to local scoring instead.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		limiter: newLimiter(defaultRPS),
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ScoreCompany(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	if req.CompanyName == "" {
		return nil, eris.New("yolwise: company_name is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "yolwise: rate limit wait")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "yolwise: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score_company", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "yolwise: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "yolwise: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "yolwise: read response")
	}

	var env envelope
	if resp.StatusCode != http.StatusOK {
		// The service reports errors inside the envelope when it can.
		if json.Unmarshal(respBody, &env) == nil && env.reason() != "" {
			return nil, eris.Errorf("yolwise: status %d: %s", resp.StatusCode, env.reason())
		}
		return nil, eris.Errorf("yolwise: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, eris.Wrap(err, "yolwise: unmarshal response")
	}
	if !env.Success {
		return nil, eris.Errorf("yolwise: service refused request: %s", env.reason())
	}

	var result ScoreResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return nil, eris.Wrap(err, "yolwise: unmarshal result")
	}
	return &result, nil
}

func (c *httpClient) Health(ctx context.Context) (*HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, eris.Wrap(err, "yolwise: create health request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "yolwise: health request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "yolwise: read health response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("yolwise: health status %d", resp.StatusCode)
	}

	var status HealthStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, eris.Wrap(err, "yolwise: unmarshal health response")
	}
	return &status, nil
}
