package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/yolwise/leadscore-cli/internal/adjust"
	"github.com/yolwise/leadscore-cli/internal/analysis"
	"github.com/yolwise/leadscore-cli/internal/batch"
	"github.com/yolwise/leadscore-cli/internal/fallback"
	"github.com/yolwise/leadscore-cli/internal/industry"
	"github.com/yolwise/leadscore-cli/internal/mapper"
	"github.com/yolwise/leadscore-cli/internal/metrics"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/rowio"
	"github.com/yolwise/leadscore-cli/internal/scoring"
	"github.com/yolwise/leadscore-cli/internal/store"
	"github.com/yolwise/leadscore-cli/pkg/anthropic"
	"github.com/yolwise/leadscore-cli/pkg/yolwise"
)

// initStore opens the checkpoint store named by config and migrates its
// schema so commands can rely on the tables being present.
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadscore.db"
		}
		s, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		})
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// newMapper builds the field mapper, honoring a table override from
// config. The field table is returned alongside so the fallback
// resolver can enforce the same length and numeric constraints.
func newMapper() (*mapper.Mapper, []mapper.FieldMapping, error) {
	fields := mapper.DefaultFieldTable()
	cats := mapper.DefaultCategoryTable()
	if cfg.Mapper.FieldsPath != "" {
		f, c, err := mapper.LoadTables(cfg.Mapper.FieldsPath)
		if err != nil {
			return nil, nil, err
		}
		fields, cats = f, c
	}

	opts := []mapper.Option{mapper.WithTables(fields, cats)}
	if cfg.Mapper.MaxFactsPerCategory > 0 {
		opts = append(opts, mapper.WithMaxFacts(cfg.Mapper.MaxFactsPerCategory))
	}
	return mapper.New(opts...), fields, nil
}

// newClassifier builds the industry classifier, honoring a table
// override from config.
func newClassifier() (*industry.Classifier, error) {
	if cfg.Industry.TablePath == "" {
		return industry.New(), nil
	}
	table, err := industry.LoadTable(cfg.Industry.TablePath)
	if err != nil {
		return nil, err
	}
	return industry.New(industry.WithTable(table)), nil
}

// buildOrchestrator wires the batch pipeline from config. Claude
// clients are only constructed when a key is configured and the run is
// not offline; the remote scorer only when a Yolwise base URL is set;
// the Sheets client only for the sheets source.
func buildOrchestrator(ctx context.Context, st store.Store, opts model.RunOptions, met *metrics.Metrics) (*batch.Orchestrator, error) {
	m, fields, err := newMapper()
	if err != nil {
		return nil, err
	}
	classifier, err := newClassifier()
	if err != nil {
		return nil, err
	}

	var (
		resolver *fallback.Resolver
		analyzer *analysis.Analyzer
	)
	if cfg.Anthropic.Key != "" && !opts.Offline {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		resolver = fallback.New(client,
			fallback.WithModel(cfg.Anthropic.Model),
			fallback.WithMaxTokens(int64(cfg.Anthropic.MaxTokens)),
			fallback.WithValueCap(cfg.Mapper.FallbackValueCap),
			fallback.WithFieldTable(fields),
		)
		analyzer = analysis.New(client,
			analysis.WithModel(cfg.Anthropic.Model),
			analysis.WithMaxTokens(int64(cfg.Anthropic.MaxTokens)),
			analysis.WithCacheSize(cfg.Analysis.CacheSize),
		)
	}

	var remote yolwise.Client
	if cfg.Yolwise.BaseURL != "" {
		remote = yolwise.NewClient(cfg.Yolwise.APIKey,
			yolwise.WithBaseURL(cfg.Yolwise.BaseURL),
			yolwise.WithRateLimit(cfg.Yolwise.RPS),
		)
	}

	var sheets *rowio.SheetsClient
	if opts.Source == "sheets" {
		sheets, err = rowio.NewSheetsClient(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			return nil, err
		}
	}

	return batch.New(cfg.Batch, st, m, resolver, analyzer,
		scoring.New(classifier), adjust.New(), remote, sheets, met), nil
}
