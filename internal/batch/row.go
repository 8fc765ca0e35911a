package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/quality"
	"github.com/yolwise/leadscore-cli/internal/rowio"
	"github.com/yolwise/leadscore-cli/pkg/yolwise"
)

// processRow runs one row through map, resolve, quality, analyze,
// score, and adjust. A panic anywhere in the row becomes a failed
// result; the batch always moves on to the next row.
func (o *Orchestrator) processRow(ctx context.Context, table *rowio.Table, row int, opts model.RunOptions, remoteOK bool) (res model.RowResult) {
	start := time.Now()
	res = model.RowResult{Row: row}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("batch: row panicked",
				zap.Int("row", row),
				zap.Any("panic", r))
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
			res.Score = nil
		}
		res.DurationMS = time.Since(start).Milliseconds()
	}()

	mapped := o.mapper.Map(model.RawRow{Index: row, Headers: table.Headers, Cells: table.Rows[row]})
	profile := mapped.Profile

	fallbackUsed := false
	fallbackFilled := 0
	if missing := profile.MissingCritical(); len(missing) > 0 && !opts.Offline && o.resolver != nil {
		fallbackUsed = true
		o.metrics.IncFallback()
		fallbackFilled = o.resolver.Resolve(ctx, profile, mapped.Leftovers, missing)
	}
	res.CompanyName = profile.Str(model.FieldCompanyName)

	_, report := quality.Score(profile, fallbackUsed, fallbackFilled)
	res.Quality = report

	if o.analyzer != nil && !opts.Offline {
		if found := o.analyzer.Analyze(ctx, profile); found != nil {
			found.MergeInto(profile)
		}
	}

	base := o.baseScore(ctx, profile, res.CompanyName, remoteOK)
	scored := o.adjuster.Apply(base, profile)

	res.Score = &scored
	res.Success = true
	return res
}

// baseScore asks the hosted service first and falls back to the local
// engine on any failure. The row keeps going either way; only the
// score provenance changes.
func (o *Orchestrator) baseScore(ctx context.Context, p *model.Profile, name string, remoteOK bool) model.BaseScore {
	if remoteOK && o.remote != nil {
		result, err := o.remote.ScoreCompany(ctx, yolwise.ScoreRequest{
			CompanyName: name,
			CompanyData: p.Fields,
		})
		if err == nil && result != nil {
			return remoteBase(result)
		}
		o.metrics.IncRemoteFailure()
		zap.L().Warn("batch: remote scoring failed, scoring locally",
			zap.String("company", name),
			zap.Error(err))
	}
	return o.local.Score(p)
}

// remoteBase reshapes the hosted service's reply into the base score
// the adjustment engine consumes.
func remoteBase(r *yolwise.ScoreResult) model.BaseScore {
	return model.BaseScore{
		BaseScore:             r.BaseScore,
		IndustryMultiplier:    r.IndustryMultiplier,
		IndustryAdjustedScore: r.IndustryAdjustedScore,
		DetectedIndustry:      r.DetectedIndustry,
		IndustryConfidence:    r.IndustryConfidence,
		Breakdown:             r.ScoreBreakdown,
		Explanation:           r.IndustryExplanation,
		Source:                model.ScoreSourceRemote,
	}
}
