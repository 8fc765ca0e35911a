// Package batch drives the row-by-row scoring run. It owns the
// checkpoint lifecycle, the wall-clock budget, and the advisory lock
// that keeps two operators off the same input. Rows are processed
// strictly in order on a single goroutine; network latency is paid out
// of each row's share of the budget.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yolwise/leadscore-cli/internal/adjust"
	"github.com/yolwise/leadscore-cli/internal/analysis"
	"github.com/yolwise/leadscore-cli/internal/config"
	"github.com/yolwise/leadscore-cli/internal/fallback"
	"github.com/yolwise/leadscore-cli/internal/mapper"
	"github.com/yolwise/leadscore-cli/internal/metrics"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/rowio"
	"github.com/yolwise/leadscore-cli/internal/scoring"
	"github.com/yolwise/leadscore-cli/internal/store"
	"github.com/yolwise/leadscore-cli/pkg/yolwise"
)

// Orchestrator runs one batch invocation end to end.
type Orchestrator struct {
	store    store.Store
	mapper   *mapper.Mapper
	resolver *fallback.Resolver
	analyzer *analysis.Analyzer
	local    *scoring.Engine
	adjuster *adjust.Engine
	remote   yolwise.Client
	sheets   *rowio.SheetsClient
	metrics  *metrics.Metrics

	budget          time.Duration
	checkpointEvery int
	stateExpiry     time.Duration
	lockTTL         time.Duration
	maxPayload      int
	compactKeep     int

	// now drives only the run budget; persisted timestamps stay on the
	// wall clock. Swapped in tests.
	now func() time.Time
}

// New creates an Orchestrator with all dependencies. resolver, analyzer,
// remote, sheets, and met may be nil; the matching stages are skipped.
func New(
	cfg config.BatchConfig,
	st store.Store,
	m *mapper.Mapper,
	res *fallback.Resolver,
	an *analysis.Analyzer,
	local *scoring.Engine,
	adj *adjust.Engine,
	remote yolwise.Client,
	sheets *rowio.SheetsClient,
	met *metrics.Metrics,
) *Orchestrator {
	if cfg.BudgetSecs <= 0 {
		cfg.BudgetSecs = 330
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 5
	}
	if cfg.StateExpiryHours <= 0 {
		cfg.StateExpiryHours = 24
	}
	if cfg.LockTTLSecs <= 0 {
		cfg.LockTTLSecs = 60
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = store.MaxPayload
	}
	if cfg.CompactKeepResults <= 0 {
		cfg.CompactKeepResults = 50
	}
	return &Orchestrator{
		store:           st,
		mapper:          m,
		resolver:        res,
		analyzer:        an,
		local:           local,
		adjuster:        adj,
		remote:          remote,
		sheets:          sheets,
		metrics:         met,
		budget:          time.Duration(cfg.BudgetSecs) * time.Second,
		checkpointEvery: cfg.CheckpointEvery,
		stateExpiry:     time.Duration(cfg.StateExpiryHours) * time.Hour,
		lockTTL:         time.Duration(cfg.LockTTLSecs) * time.Second,
		maxPayload:      cfg.MaxPayloadBytes,
		compactKeep:     cfg.CompactKeepResults,
		now:             time.Now,
	}
}

// Key derives the checkpoint key for the run options. The same input
// addressed the same way yields the same key, which is what lets a
// rerun find and resume its predecessor's state.
func Key(opts model.RunOptions) string {
	if opts.Source == "sheets" {
		return "batch:" + opts.SpreadsheetID + "!" + opts.Range
	}
	return "batch:" + filepath.Clean(opts.Path)
}

// Run drives one invocation for the given options: lock, resume or
// start fresh, process rows until done or out of budget, then either
// write results or checkpoint for the next invocation.
func (o *Orchestrator) Run(ctx context.Context, opts model.RunOptions) (*model.BatchResult, error) {
	return o.run(ctx, Key(opts), opts)
}

// Resume re-enters a suspended batch from its persisted options alone.
func (o *Orchestrator) Resume(ctx context.Context, key string) (*model.BatchResult, error) {
	raw, err := o.store.Get(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read state %s", key)
	}
	if raw == nil {
		return nil, eris.Errorf("batch: no checkpoint for %s", key)
	}
	var prev model.BatchState
	if err := json.Unmarshal(raw, &prev); err != nil {
		return nil, eris.Wrapf(err, "batch: decode state %s", key)
	}
	return o.run(ctx, key, prev.Options)
}

func (o *Orchestrator) run(ctx context.Context, key string, opts model.RunOptions) (*model.BatchResult, error) {
	log := zap.L().With(zap.String("batch", key))
	start := o.now()

	// ===== Phase 1: Lock =====
	token, err := o.store.Lock(ctx, key, o.lockTTL)
	if err != nil {
		if eris.Is(err, store.ErrLockHeld) {
			return nil, eris.Wrapf(err, "batch: another run holds %s", key)
		}
		return nil, eris.Wrap(err, "batch: acquire lock")
	}
	defer func() {
		// The run may end on a canceled context; release with a fresh one.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if unlockErr := o.store.Unlock(unlockCtx, key, token); unlockErr != nil {
			log.Warn("batch: unlock failed", zap.Error(unlockErr))
		}
	}()

	// ===== Phase 2: Resume or start fresh =====
	st, resumed, err := o.loadState(ctx, key, opts)
	if err != nil {
		return nil, err
	}

	// ===== Phase 3: Input =====
	src, sink, err := o.openIO(st.Options)
	if err != nil {
		return nil, err
	}
	table, err := src.Read(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "batch: read input")
	}
	if resumed && st.Total != len(table.Rows) {
		log.Warn("batch: input row count changed since checkpoint, starting over",
			zap.Int("checkpoint_total", st.Total),
			zap.Int("current_total", len(table.Rows)))
		st = o.freshState(key, opts)
		resumed = false
		if src, sink, err = o.openIO(st.Options); err != nil {
			return nil, err
		}
		if table, err = src.Read(ctx); err != nil {
			return nil, eris.Wrap(err, "batch: read input")
		}
	}
	if !resumed {
		st.Total = len(table.Rows)
	}

	log = log.With(zap.String("run_id", st.RunID))
	if resumed {
		log.Info("batch: resuming",
			zap.Int("processed", st.Processed),
			zap.Int("total", st.Total))
	} else {
		log.Info("batch: starting", zap.Int("total", st.Total))
	}

	// ===== Phase 4: Remote health probe + analysis primer =====
	remoteOK := false
	if o.remote != nil && !st.Options.Offline {
		h, healthErr := o.remote.Health(ctx)
		if healthErr != nil || !h.Healthy() {
			log.Warn("batch: remote scoring unavailable, scoring locally", zap.Error(healthErr))
		} else {
			remoteOK = true
		}
	}
	if o.analyzer != nil && !st.Options.Offline && st.Processed < st.Total {
		o.analyzer.Primer(ctx)
	}

	// ===== Phase 5: Row loop =====
	for row := st.Processed; row < st.Total; row++ {
		if ctx.Err() != nil {
			return o.suspend(st, log, start, token, "interrupted")
		}
		if o.now().Sub(start) >= o.budget {
			return o.suspend(st, log, start, token, "budget exhausted")
		}

		res := o.processRow(ctx, table, row, st.Options, remoteOK)
		st.Results = append(st.Results, res)
		st.Processed++
		if res.Success {
			st.Succeeded++
			o.metrics.IncSucceeded()
		} else {
			st.Failed++
			o.metrics.IncFailed()
		}
		o.metrics.IncProcessed()
		o.metrics.ObserveRowDuration(time.Duration(res.DurationMS) * time.Millisecond)

		if st.Processed%o.checkpointEvery == 0 && st.Processed < st.Total {
			if err := o.store.Refresh(ctx, key, token, o.lockTTL); err != nil {
				return nil, eris.Wrap(err, "batch: refresh lock")
			}
			if err := o.saveState(ctx, st); err != nil {
				return nil, err
			}
		}
	}

	// ===== Phase 6: Results =====
	// Sheet cells must line up with the input rows they grade; a CSV
	// report instead ranks rows by final score.
	_, aligned := sink.(*rowio.SheetsSink)
	if err := sink.Write(ctx, resultHeader(), resultRecords(st, aligned)); err != nil {
		st.Status = model.BatchStatusFailed
		if saveErr := o.saveState(ctx, st); saveErr != nil {
			log.Warn("batch: save state after sink failure", zap.Error(saveErr))
		}
		return nil, eris.Wrap(err, "batch: write results")
	}

	st.Status = model.BatchStatusCompleted
	if err := o.store.Delete(ctx, key); err != nil {
		// The leftover state cannot resume; the next run discards it.
		log.Warn("batch: delete state failed", zap.Error(err))
	}

	elapsed := o.now().Sub(start)
	log.Info("batch: completed",
		zap.Int("total", st.Total),
		zap.Int("succeeded", st.Succeeded),
		zap.Int("failed", st.Failed),
		zap.Int("targets", st.Targets()),
		zap.Duration("elapsed", elapsed))
	return &model.BatchResult{State: st, Elapsed: elapsed}, nil
}

// loadState reads the persisted checkpoint for key and decides between
// resuming it and starting fresh. Expired, corrupt, or inconsistent
// checkpoints are discarded with a warning.
func (o *Orchestrator) loadState(ctx context.Context, key string, opts model.RunOptions) (*model.BatchState, bool, error) {
	raw, err := o.store.Get(ctx, key)
	if err != nil {
		return nil, false, eris.Wrapf(err, "batch: read state %s", key)
	}
	if raw == nil {
		return o.freshState(key, opts), false, nil
	}

	var prev model.BatchState
	if err := json.Unmarshal(raw, &prev); err != nil {
		zap.L().Warn("batch: checkpoint unreadable, starting over",
			zap.String("batch", key), zap.Error(err))
		return o.freshState(key, opts), false, nil
	}
	switch {
	case prev.Expired(time.Now().UTC(), o.stateExpiry):
		zap.L().Warn("batch: checkpoint expired, starting over",
			zap.String("batch", key),
			zap.Time("saved_at", prev.SavedAt))
	case !prev.ResumeValid():
		zap.L().Warn("batch: checkpoint not resumable, starting over",
			zap.String("batch", key))
	default:
		prev.Status = model.BatchStatusRunning
		return &prev, true, nil
	}
	return o.freshState(key, opts), false, nil
}

func (o *Orchestrator) freshState(key string, opts model.RunOptions) *model.BatchState {
	return &model.BatchState{
		Key:       key,
		RunID:     uuid.New().String(),
		Status:    model.BatchStatusRunning,
		Options:   opts,
		StartedAt: time.Now().UTC(),
	}
}

// suspend checkpoints a run that cannot continue this invocation. The
// caller's context may already be dead, so persistence runs on its own.
func (o *Orchestrator) suspend(st *model.BatchState, log *zap.Logger, start time.Time, token, reason string) (*model.BatchResult, error) {
	st.Status = model.BatchStatusCheckpointed

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.Refresh(ctx, st.Key, token, o.lockTTL); err != nil {
		return nil, eris.Wrap(err, "batch: refresh lock")
	}
	if err := o.saveState(ctx, st); err != nil {
		return nil, err
	}

	elapsed := o.now().Sub(start)
	continuation := fmt.Sprintf("%s after %d of %d rows; rerun the same batch to continue from row %d",
		reason, st.Processed, st.Total, st.Processed)
	log.Info("batch: suspended",
		zap.String("reason", reason),
		zap.Int("processed", st.Processed),
		zap.Int("total", st.Total),
		zap.Duration("elapsed", elapsed))
	return &model.BatchResult{
		State:        st,
		Incomplete:   true,
		Continuation: continuation,
		Elapsed:      elapsed,
	}, nil
}

// saveState persists the checkpoint, compacting the result history when
// the payload outgrows the ceiling. Row counters always survive intact,
// so resume stays exact even after a full compaction.
func (o *Orchestrator) saveState(ctx context.Context, st *model.BatchState) error {
	st.SavedAt = time.Now().UTC()

	payload, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "batch: marshal state")
	}
	if len(payload) > o.maxPayload {
		st.TrimResultBodies(o.compactKeep)
		if payload, err = json.Marshal(st); err != nil {
			return eris.Wrap(err, "batch: marshal state")
		}
	}
	if len(payload) > o.maxPayload {
		st.DropResults()
		if payload, err = json.Marshal(st); err != nil {
			return eris.Wrap(err, "batch: marshal state")
		}
	}

	if err := o.store.Set(ctx, st.Key, payload); err != nil {
		return eris.Wrapf(err, "batch: persist state %s", st.Key)
	}
	o.metrics.IncCheckpointSave()
	return nil
}

// openIO builds the row source and result sink for the run options.
// Resume re-enters here with the options persisted by the original run,
// so a suspended batch reopens exactly the same input.
func (o *Orchestrator) openIO(opts model.RunOptions) (rowio.Source, rowio.Sink, error) {
	switch opts.Source {
	case "csv":
		return &rowio.CSVSource{Path: opts.Path}, &rowio.CSVSink{Path: OutputPath(opts)}, nil
	case "xlsx":
		return &rowio.XLSXSource{Path: opts.Path, Sheet: opts.Sheet}, &rowio.CSVSink{Path: OutputPath(opts)}, nil
	case "sheets":
		if o.sheets == nil {
			return nil, nil, eris.New("batch: google sheets client not configured")
		}
		ref, err := rowio.ParseRange(opts.Range)
		if err != nil {
			return nil, nil, eris.Wrap(err, "batch: parse range")
		}
		src := &rowio.SheetsSource{Client: o.sheets, SpreadsheetID: opts.SpreadsheetID, Range: ref}
		if opts.Output != "" {
			return src, &rowio.CSVSink{Path: opts.Output}, nil
		}
		return src, &rowio.SheetsSink{Client: o.sheets, SpreadsheetID: opts.SpreadsheetID, Source: ref}, nil
	default:
		return nil, nil, eris.Errorf("batch: unknown source %q", opts.Source)
	}
}

// OutputPath picks the CSV sink path, defaulting to a _scored sibling
// of the input file.
func OutputPath(opts model.RunOptions) string {
	if opts.Output != "" {
		return opts.Output
	}
	ext := filepath.Ext(opts.Path)
	return strings.TrimSuffix(opts.Path, ext) + "_scored.csv"
}
