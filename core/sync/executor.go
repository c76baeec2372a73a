package sync

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor applies a ChangeSet against the destination store in size-bounded
// batches with bounded concurrency and retry on transient failures. Batches
// are independent: a failed batch never rolls back the others.
type Executor struct {
	store         Store
	batchSize     int
	maxConcurrent int
	attempts      int
	baseDelay     time.Duration
	log           *zap.Logger
}

// NewExecutor creates an executor from the run options.
func NewExecutor(store Store, cfg Config, log *zap.Logger) *Executor {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	maxConcurrent := cfg.MaxConcurrentBatches
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Executor{
		store:         store,
		batchSize:     cfg.BatchSize,
		maxConcurrent: maxConcurrent,
		attempts:      attempts,
		baseDelay:     500 * time.Millisecond,
		log:           log,
	}
}

// GroupResult is the outcome of one dispatched batch.
type GroupResult struct {
	Kind         string   `json:"kind"`
	Size         int      `json:"size"`
	Attempts     int      `json:"attempts"`
	Err          error    `json:"-"`
	FailedDocIDs []string `json:"failed_doc_ids,omitempty"`
}

// ExecutionReport aggregates the batch results of one run.
type ExecutionReport struct {
	Groups  []GroupResult `json:"groups"`
	Written int           `json:"written"`
	Deleted int           `json:"deleted"`
}

// Failed returns the failed document count and the failed group count.
func (r *ExecutionReport) Failed() (docs, groups int) {
	for _, g := range r.Groups {
		if len(g.FailedDocIDs) > 0 {
			docs += len(g.FailedDocIDs)
			groups++
		}
	}
	return docs, groups
}

type batch struct {
	kind    string
	docs    []Document
	deletes []string
}

// Execute dispatches the change set. Batches are submitted updates first,
// then creates, then deletes; the sets are disjoint in doc_id, so completion
// order does not matter. Cancelling the context stops new batches from being
// dispatched; batches already in flight run to completion so the destination
// is never left with a torn batch.
func (e *Executor) Execute(ctx context.Context, collection string, cs *ChangeSet) (*ExecutionReport, error) {
	batches := e.split(cs)
	report := &ExecutionReport{Groups: make([]GroupResult, len(batches))}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(e.maxConcurrent)

	submitted := len(batches)
	var ctxErr error
	for i, b := range batches {
		if ctxErr = ctx.Err(); ctxErr != nil {
			submitted = i
			break
		}
		i, b := i, b
		g.Go(func() error {
			report.Groups[i] = e.dispatch(gctx, collection, b)
			return nil
		})
	}
	// Truncation must wait for the in-flight goroutines, which write into
	// report.Groups by index.
	_ = g.Wait()
	report.Groups = report.Groups[:submitted]
	e.tally(report)
	return report, ctxErr
}

func (e *Executor) tally(report *ExecutionReport) {
	for _, gr := range report.Groups {
		failed := make(map[string]struct{}, len(gr.FailedDocIDs))
		for _, id := range gr.FailedDocIDs {
			failed[id] = struct{}{}
		}
		ok := gr.Size - len(failed)
		if gr.Kind == "delete" {
			report.Deleted += ok
		} else {
			report.Written += ok
		}
	}
}

// split chunks the change set into batches, updates first.
func (e *Executor) split(cs *ChangeSet) []batch {
	var batches []batch
	groups := []struct {
		kind string
		docs []Document
	}{
		{"update", cs.Updates},
		{"create", cs.Creates},
	}
	for _, grp := range groups {
		for start := 0; start < len(grp.docs); start += e.batchSize {
			end := start + e.batchSize
			if end > len(grp.docs) {
				end = len(grp.docs)
			}
			batches = append(batches, batch{kind: grp.kind, docs: grp.docs[start:end]})
		}
	}
	for start := 0; start < len(cs.Deletes); start += e.batchSize {
		end := start + e.batchSize
		if end > len(cs.Deletes) {
			end = len(cs.Deletes)
		}
		batches = append(batches, batch{kind: "delete", deletes: cs.Deletes[start:end]})
	}
	return batches
}

// dispatch runs one batch with exponential backoff on transient errors.
func (e *Executor) dispatch(ctx context.Context, collection string, b batch) GroupResult {
	result := GroupResult{Kind: b.kind, Size: len(b.docs) + len(b.deletes)}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(e.baseDelay),
		), uint64(e.attempts-1)),
		ctx,
	)

	var outcomes []Outcome
	operation := func() error {
		result.Attempts++
		var err error
		if b.kind == "delete" {
			outcomes, err = e.store.BatchDelete(ctx, collection, b.deletes)
		} else {
			outcomes, err = e.store.BatchWrite(ctx, collection, b.docs)
		}
		if err != nil {
			if IsTransient(err) {
				e.log.Warn("batch attempt failed, retrying",
					zap.String("kind", b.kind),
					zap.Int("size", result.Size),
					zap.Int("attempt", result.Attempts),
					zap.Error(err),
				)
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		result.Err = err
		result.FailedDocIDs = b.ids()
		e.log.Error("batch failed",
			zap.String("kind", b.kind),
			zap.Int("size", result.Size),
			zap.Int("attempts", result.Attempts),
			zap.Error(err),
		)
		return result
	}

	for _, o := range outcomes {
		if o.Err != nil {
			result.FailedDocIDs = append(result.FailedDocIDs, o.DocID)
			e.log.Warn("document failed within batch",
				zap.String("kind", b.kind),
				zap.String("doc_id", o.DocID),
				zap.Error(o.Err),
			)
		}
	}
	return result
}

func (b batch) ids() []string {
	if b.kind == "delete" {
		return append([]string(nil), b.deletes...)
	}
	ids := make([]string, len(b.docs))
	for i, d := range b.docs {
		ids[i] = d.DocID
	}
	return ids
}
