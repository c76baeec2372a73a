package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine runs one reconciliation: fetch both snapshots, plan the change set
// for the configured strategy, and execute it against the store. Engines are
// cheap; create one per run.
type Engine struct {
	reader   Reader
	store    Store
	cfg      Config
	strategy Strategy
	log      *zap.Logger
}

// Plan is the computed change set of a run, before execution.
type Plan struct {
	RunID       string     `json:"run_id"`
	Strategy    Strategy   `json:"strategy"`
	SourceCount int        `json:"source_count"`
	DestCount   int        `json:"dest_count"`
	Changes     *ChangeSet `json:"changes"`
	Warnings    []Warning  `json:"warnings,omitempty"`
}

// Report is the final result of a run.
type Report struct {
	RunID                 string           `json:"run_id"`
	Strategy              Strategy         `json:"strategy"`
	SourceCount           int              `json:"source_count"`
	DestCount             int              `json:"dest_count"`
	Created               int              `json:"created"`
	Updated               int              `json:"updated"`
	Deleted               int              `json:"deleted"`
	Warnings              []Warning        `json:"warnings,omitempty"`
	Execution             *ExecutionReport `json:"execution,omitempty"`
	Duration              time.Duration    `json:"duration"`
	CompletedWithFailures bool             `json:"completed_with_failures"`
}

// NewEngine validates the run options and wires an engine.
func NewEngine(reader Reader, store Store, cfg Config, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return &Engine{
		reader:   reader,
		store:    store,
		cfg:      cfg,
		strategy: strategy,
		log:      log,
	}, nil
}

// Plan fetches both snapshots concurrently and computes the change set
// without writing anything. This is the dry-run surface.
func (e *Engine) Plan(ctx context.Context) (*Plan, error) {
	runID := uuid.NewString()
	log := e.log.With(zap.String("run_id", runID), zap.String("strategy", string(e.strategy)))

	var (
		source []SourceRecord
		dest   []Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := e.reader.Fetch(gctx, e.cfg.Table)
		if err != nil {
			return &SourceFetchError{Table: e.cfg.Table, Err: err}
		}
		source = recs
		return nil
	})
	g.Go(func() error {
		docs, err := e.store.Query(gctx, e.cfg.Collection)
		if err != nil {
			return err
		}
		dest = docs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("snapshots loaded",
		zap.Int("source_records", len(source)),
		zap.Int("destination_documents", len(dest)),
	)

	now := time.Now().UTC()
	planner := NewPlanner(e.cfg, e.strategy, NewLedger(now), now, log)
	cs, warnings, err := planner.Plan(source, dest)
	if err != nil {
		return nil, err
	}

	log.Info("change set planned",
		zap.Int("creates", len(cs.Creates)),
		zap.Int("updates", len(cs.Updates)),
		zap.Int("deletes", len(cs.Deletes)),
		zap.Int("warnings", len(warnings)),
	)

	return &Plan{
		RunID:       runID,
		Strategy:    e.strategy,
		SourceCount: len(source),
		DestCount:   len(dest),
		Changes:     cs,
		Warnings:    warnings,
	}, nil
}

// Run plans and executes one reconciliation. A run whose batches partially
// failed returns both the report and a PartialFailureError; the successful
// batches stay applied.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	plan, err := e.Plan(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       plan.RunID,
		Strategy:    plan.Strategy,
		SourceCount: plan.SourceCount,
		DestCount:   plan.DestCount,
		Created:     len(plan.Changes.Creates),
		Updated:     len(plan.Changes.Updates),
		Deleted:     len(plan.Changes.Deletes),
		Warnings:    plan.Warnings,
	}
	log := e.log.With(zap.String("run_id", plan.RunID), zap.String("strategy", string(plan.Strategy)))

	if plan.Changes.Empty() {
		report.Duration = time.Since(start)
		log.Info("nothing to do", zap.Duration("duration", report.Duration))
		return report, nil
	}

	executor := NewExecutor(e.store, e.cfg, log)
	exec, execErr := executor.Execute(ctx, e.cfg.Collection, plan.Changes)
	report.Execution = exec
	report.Duration = time.Since(start)

	failedDocs, failedGroups := exec.Failed()
	report.CompletedWithFailures = failedDocs > 0

	log.Info("run finished",
		zap.Int("written", exec.Written),
		zap.Int("deleted", exec.Deleted),
		zap.Int("failed_documents", failedDocs),
		zap.Duration("duration", report.Duration),
	)

	if execErr != nil {
		return report, execErr
	}
	if report.CompletedWithFailures {
		return report, &PartialFailureError{FailedDocs: failedDocs, FailedGroups: failedGroups}
	}
	return report, nil
}
