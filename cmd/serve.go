package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yolwise/leadscore-cli/internal/industry"
	"github.com/yolwise/leadscore-cli/internal/metrics"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/scoring"
	"github.com/yolwise/leadscore-cli/pkg/yolwise"
)

const (
	apiVersion   = "1.0-yolwise"
	scoringModel = "Turkish B2B Market"

	// batchScoreLimit bounds one /score_batch request.
	batchScoreLimit = 200
	// batchScoreWorkers bounds concurrent scoring per request.
	batchScoreWorkers = 8
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring engine over HTTP",
	Long: `Exposes the local scoring engine behind the same HTTP surface as the
hosted Yolwise service, so integrations can point at either.

Endpoints:
  GET  /               API info
  GET  /health         liveness probe
  GET  /industries     industry multiplier table
  GET  /metrics        Prometheus metrics
  POST /score_company  score one company
  POST /score_batch    score up to 200 companies

The scoring endpoints require an API key (X-API-Key header or api_key
query parameter) when serve.api_key is configured; without one they are
open.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	classifier, err := newClassifier()
	if err != nil {
		return err
	}
	srv := &scoreServer{
		classifier: classifier,
		engine:     scoring.New(classifier),
		met:        metrics.New(),
		apiKey:     cfg.Serve.APIKey,
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down scoring server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting scoring server",
		zap.String("addr", addr),
		zap.Bool("auth", srv.apiKey != ""),
	)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "serve: listen")
	}

	return nil
}

// scoreServer serves the local engine behind the hosted service's wire
// format: {success, result, metadata} envelopes with the field names
// pkg/yolwise parses.
type scoreServer struct {
	classifier *industry.Classifier
	engine     *scoring.Engine
	met        *metrics.Metrics
	apiKey     string
}

func newRouter(s *scoreServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	}))

	r.Get("/", s.handleInfo)
	r.Get("/health", s.handleHealth)
	r.Get("/industries", s.handleIndustries)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.met.Registry, promhttp.HandlerOpts{}))

	r.Group(func(g chi.Router) {
		g.Use(s.requireAPIKey)
		g.Post("/score_company", s.handleScoreCompany)
		g.Post("/score_batch", s.handleScoreBatch)
	})

	return r
}

// requireAPIKey guards the scoring endpoints. With no key configured
// the endpoints stay open.
func (s *scoreServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != s.apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized", "valid API key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *scoreServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "Yolwise Lead Scoring API",
		"api_version": apiVersion,
		"endpoints": map[string]string{
			"GET /":               "API info",
			"GET /health":         "liveness probe",
			"GET /industries":     "industry multiplier table",
			"GET /metrics":        "Prometheus metrics",
			"POST /score_company": "score one company",
			"POST /score_batch":   "score a list of companies",
		},
	})
}

func (s *scoreServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, yolwise.HealthStatus{Status: "healthy", Version: apiVersion})
}

func (s *scoreServer) handleIndustries(w http.ResponseWriter, r *http.Request) {
	table := s.classifier.Table()
	writeJSON(w, http.StatusOK, map[string]any{
		"industries": table,
		"count":      len(table),
	})
}

func (s *scoreServer) handleScoreCompany(w http.ResponseWriter, r *http.Request) {
	s.met.IncRequest("score_company")

	var req yolwise.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "company_name is required")
		return
	}

	writeResult(w, s.scoreOne(req))
}

func (s *scoreServer) handleScoreBatch(w http.ResponseWriter, r *http.Request) {
	s.met.IncRequest("score_batch")

	var req struct {
		Companies []json.RawMessage `json:"companies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if len(req.Companies) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "companies must be a non-empty array")
		return
	}
	if len(req.Companies) > batchScoreLimit {
		writeError(w, http.StatusBadRequest, "batch_too_large",
			fmt.Sprintf("at most %d companies per request", batchScoreLimit))
		return
	}

	reqs := make([]yolwise.ScoreRequest, len(req.Companies))
	for i, raw := range req.Companies {
		sr, err := parseCompanyEntry(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request",
				fmt.Sprintf("companies[%d]: %v", i, err))
			return
		}
		reqs[i] = sr
	}

	start := time.Now()
	results := make([]*yolwise.ScoreResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(batchScoreWorkers)
	for i, sr := range reqs {
		g.Go(func() error {
			results[i] = s.scoreOne(sr)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].IndustryAdjustedScore > results[j].IndustryAdjustedScore
	})

	writeResult(w, map[string]any{
		"results": results,
		"summary": batchScoreSummary(results, time.Since(start)),
	})
}

// scoreOne runs the local engine over one request. The hosted schema
// carries no adjustment stage; priority falls out of the
// industry-adjusted score alone.
func (s *scoreServer) scoreOne(req yolwise.ScoreRequest) *yolwise.ScoreResult {
	start := time.Now()

	p := model.NewProfile()
	for k, v := range req.CompanyData {
		p.Set(k, v)
	}
	p.Set(model.FieldCompanyName, req.CompanyName)

	base := s.engine.Score(p)
	return &yolwise.ScoreResult{
		CompanyName:            req.CompanyName,
		BaseScore:              base.BaseScore,
		IndustryMultiplier:     base.IndustryMultiplier,
		IndustryAdjustedScore:  base.IndustryAdjustedScore,
		DetectedIndustry:       base.DetectedIndustry,
		IndustryConfidence:     base.IndustryConfidence,
		PriorityRecommendation: string(model.PriorityFor(base.IndustryAdjustedScore)),
		IndustryExplanation:    base.Explanation,
		ScoreBreakdown:         base.Breakdown,
		ProcessingTimeMS:       int(time.Since(start).Milliseconds()),
	}
}

// parseCompanyEntry accepts both the string form ("Acme A.Ş.") and the
// object form ({"company_name": ..., "company_data": ...}).
func parseCompanyEntry(raw json.RawMessage) (yolwise.ScoreRequest, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if strings.TrimSpace(name) == "" {
			return yolwise.ScoreRequest{}, eris.New("company name is empty")
		}
		return yolwise.ScoreRequest{CompanyName: name}, nil
	}

	var sr yolwise.ScoreRequest
	if err := json.Unmarshal(raw, &sr); err != nil {
		return yolwise.ScoreRequest{}, eris.New("entry must be a string or an object")
	}
	if strings.TrimSpace(sr.CompanyName) == "" {
		return yolwise.ScoreRequest{}, eris.New("company_name is required")
	}
	return sr, nil
}

type batchSummary struct {
	TotalCompanies           int      `json:"total_companies"`
	TargetRecommendations    int      `json:"target_recommendations"`
	NonTargetRecommendations int      `json:"non_target_recommendations"`
	ProcessingTimeMS         int      `json:"processing_time_ms"`
	TopTargets               []string `json:"top_targets"`
}

// batchScoreSummary counts recommendations over sorted results, so the
// top targets come out strongest first.
func batchScoreSummary(results []*yolwise.ScoreResult, elapsed time.Duration) batchSummary {
	sum := batchSummary{
		TotalCompanies:   len(results),
		ProcessingTimeMS: int(elapsed.Milliseconds()),
		TopTargets:       []string{},
	}
	for _, r := range results {
		if r.PriorityRecommendation != string(model.PriorityTarget) {
			continue
		}
		sum.TargetRecommendations++
		if len(sum.TopTargets) < 10 {
			sum.TopTargets = append(sum.TopTargets, r.CompanyName)
		}
	}
	sum.NonTargetRecommendations = sum.TotalCompanies - sum.TargetRecommendations
	return sum
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
		"metadata": yolwise.Metadata{
			APIVersion:      apiVersion,
			ScoringModel:    scoringModel,
			TargetThreshold: model.TargetThreshold,
		},
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}
